package domain

import (
	"encoding/json"
	"time"
)

// ConnectionState describes where the marketplace session currently sits in
// its lifecycle. It is mutated only by the session's run loop; everything
// else (health endpoint, scanner) reads it.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateMetadataFetching
	StateConnecting
	StateConnected
	StateIdentifying
	StateAuthenticated
	StateDegraded
	StateReconnecting
)

// String returns the lowercase name used in logs and the status endpoint.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateMetadataFetching:
		return "metadata_fetching"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateIdentifying:
		return "identifying"
	case StateAuthenticated:
		return "authenticated"
	case StateDegraded:
		return "degraded"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// SessionCredentials are the short-lived socket credentials returned by the
// metadata endpoint. The upstream pair is time-bound (valid for roughly 30
// seconds), so credentials must be fetched immediately before every identify
// attempt rather than reused across a reconnect gap.
type SessionCredentials struct {
	UserID    int64
	UserModel json.RawMessage // full user object, echoed back in the identify frame
	Token     string
	Signature string
	FetchedAt time.Time
}

// Age returns how long ago the credentials were fetched.
func (c SessionCredentials) Age(now time.Time) time.Duration {
	return now.Sub(c.FetchedAt)
}
