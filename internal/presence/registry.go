// Package presence maps a user identity to the socket it is currently
// reachable on. At most one entry per user; a reconnect overwrites the
// previous socket (last-connected wins).
package presence

import "context"

// Registry answers "is this user reachable, and on which socket?".
//
// Entries are ephemeral: created on authenticated connect, removed on
// disconnect, never a source of truth for anything durable. Note that even
// with a shared backend, delivery still requires the socket to be attached
// to this process — the relay only ever writes to local connections, so
// running more than one relay instance leaves cross-instance users
// undeliverable.
type Registry interface {
	// MarkOnline inserts or overwrites the entry for userID.
	MarkOnline(ctx context.Context, userID, socketID string) error
	// MarkOffline removes the entry for userID, if present.
	MarkOffline(ctx context.Context, userID string) error
	// Lookup returns the socket id for userID. An unknown user is
	// (_, false, nil), never an error.
	Lookup(ctx context.Context, userID string) (string, bool, error)
}
