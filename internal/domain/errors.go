package domain

import "errors"

var (
	// ErrCredentialFetch indicates the socket metadata endpoint could not be
	// reached or returned a non-2xx response. Retry policy belongs to the
	// session state machine, not to the credential provider.
	ErrCredentialFetch = errors.New("credential fetch failed")

	// ErrTransportConnect indicates the websocket handshake failed.
	ErrTransportConnect = errors.New("transport connect failed")

	// ErrAuthFailed indicates the identify handshake was rejected or never
	// acknowledged within the retry budget.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrStaleConnection indicates no inbound data was observed for longer
	// than the configured staleness window.
	ErrStaleConnection = errors.New("stale connection")

	// ErrNotFound is returned by stores and caches when a key has no entry.
	ErrNotFound = errors.New("not found")

	// ErrSessionClosed is returned when an operation is attempted on a
	// session that has already been stopped.
	ErrSessionClosed = errors.New("session closed")
)
