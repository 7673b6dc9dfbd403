// Package cli provides the interactive Gatekeeper command-line client.
//
// It wires configuration, the on-disk session and the HTTP API client into a
// small REPL. Tokens survive restarts, so a user logs in once and keeps
// working until the refresh token expires or they log out.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
