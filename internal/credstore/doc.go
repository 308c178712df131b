// Package credstore provides persistent storage for the Fitbit credential set.
//
// Supports two writable backends with different security and deployment tradeoffs:
//   - File: flat KEY="value" file with atomic writes and secure permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//
// EnvOverlay wraps either backend and fills absent operator-supplied fields
// (client id/secret, username, password) from FITBIT_* environment variables,
// so secrets can be injected by a scheduler without ever touching disk.
package credstore
