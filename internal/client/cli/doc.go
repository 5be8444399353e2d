// Package cli provides the interactive GophChat command-line client.
//
// It wires configuration, the local cache, the API client and the chat
// store into a REPL that keeps working from the cache while the server is
// unreachable. Typical flow: resume or prompt for a sign-in, start a
// background connectivity watcher, then chat.
//
// Commands:
//   - register / login / logout
//   - sessions, new, open, rename, delete, workspace
//   - export (uploads the transcript and saves a copy under ./exports)
//
// Any other line is sent to the open session. The REPL is started via
// App.Run(ctx), which blocks until the user exits.
package cli
