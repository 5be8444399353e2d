// Package client contains the client-side building blocks for GophChat.
//
// # Overview
//
// The package provides:
//  1. The API contract (see the Client interface) for the GophChat backend:
//     auth calls, Ping and the session/message resources.
//  2. A net/http implementation (see HTTPClient) that injects the access
//     token, transparently refreshes an expired token once, and maps HTTP
//     status codes to sentinel errors.
//  3. Local cache bootstrap (InitDatabase, RunMigrations) wiring an SQLite
//     database and applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrNotFound, ErrConflict,
// ErrValidation, ErrLocalDataNotAvailable.
//
// All operations accept context.Context and honor cancellation.
package client
