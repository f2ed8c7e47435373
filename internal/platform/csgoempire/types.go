package csgoempire

import "encoding/json"

// socketMetadata is the response of GET /api/v2/metadata/socket. The user
// object is kept raw because it is echoed back verbatim as the identify
// frame's model field.
type socketMetadata struct {
	User            json.RawMessage `json:"user"`
	SocketToken     string          `json:"socket_token"`
	SocketSignature string          `json:"socket_signature"`
}

// identifyFrame is the authentication handshake emitted once per connection,
// always with freshly fetched credentials.
type identifyFrame struct {
	UID                int64           `json:"uid"`
	Model              json.RawMessage `json:"model"`
	AuthorizationToken string          `json:"authorizationToken"`
	Signature          string          `json:"signature"`
	UUID               string          `json:"uuid"`
}

// filtersFrame configures which listings the server pushes. Prices are in
// coin minor units.
type filtersFrame struct {
	PriceMin int64 `json:"price_min"`
	PriceMax int64 `json:"price_max"`
}

// allowedEventsFrame restricts the event kinds the server delivers.
type allowedEventsFrame struct {
	Events []string `json:"events"`
}

// InitPayload is the body of the inbound init / auth-ack event. It is the
// authoritative signal of authentication state; transport-level connect
// success says nothing about auth.
type InitPayload struct {
	Authenticated bool   `json:"authenticated"`
	IsGuest       bool   `json:"isGuest"`
	Name          string `json:"name"`
}

// ErrPayload is the body of the inbound err event.
type ErrPayload struct {
	Error string `json:"error"`
}
