package session

// TokenStore abstracts durable token persistence (SQLite, in-memory for tests).
// The token lives under a single fixed key; there is at most one session.
type TokenStore interface {
	// Get returns the stored token, or "" when none is stored.
	Get() (string, error)
	Set(token string) error
	Clear() error
	Close() error
}
