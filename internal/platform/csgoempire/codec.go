package csgoempire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The trade stream speaks socket.io over a raw websocket: every websocket
// text message is an engine.io packet whose first byte is the packet type,
// and message packets ('4') carry a socket.io packet whose own first byte is
// the socket.io type, an optional "/namespace," prefix, and a JSON body.
// Events are two-element JSON arrays of [name, argument].

// engine.io packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// socket.io packet types (first byte of a message body).
const (
	sioConnect    = '0'
	sioDisconnect = '1'
	sioEvent      = '2'
	sioError      = '4'
)

type frameKind int

const (
	frameOpen frameKind = iota
	frameClose
	framePing
	framePong
	frameConnect
	frameDisconnect
	frameEvent
	frameError
	frameIgnore
)

// openPayload is the handshake body of the engine.io open packet. Intervals
// are in milliseconds.
type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// frame is a single decoded inbound packet.
type frame struct {
	kind    frameKind
	event   string
	payload json.RawMessage
	open    openPayload
}

// decodeFrame parses one inbound websocket message. Packet kinds the session
// has no use for decode to frameIgnore rather than an error; only malformed
// packets fail.
func decodeFrame(data []byte) (frame, error) {
	if len(data) == 0 {
		return frame{}, fmt.Errorf("csgoempire: empty frame")
	}

	switch data[0] {
	case eioOpen:
		var f frame
		f.kind = frameOpen
		if err := json.Unmarshal(data[1:], &f.open); err != nil {
			return frame{}, fmt.Errorf("csgoempire: decode open frame: %w", err)
		}
		return f, nil
	case eioClose:
		return frame{kind: frameClose}, nil
	case eioPing:
		return frame{kind: framePing}, nil
	case eioPong:
		return frame{kind: framePong}, nil
	case eioMessage:
		return decodeMessage(data[1:])
	default:
		return frame{kind: frameIgnore}, nil
	}
}

// decodeMessage parses the socket.io body of an engine.io message packet.
func decodeMessage(body []byte) (frame, error) {
	if len(body) == 0 {
		return frame{}, fmt.Errorf("csgoempire: empty message body")
	}

	kind := body[0]
	body = trimNamespace(body[1:])

	switch kind {
	case sioConnect:
		return frame{kind: frameConnect}, nil
	case sioDisconnect:
		return frame{kind: frameDisconnect}, nil
	case sioError:
		return frame{kind: frameError, payload: json.RawMessage(body)}, nil
	case sioEvent:
		// Skip a numeric ack id if present, e.g. "421["name",...]".
		for len(body) > 0 && body[0] >= '0' && body[0] <= '9' {
			body = body[1:]
		}
		var parts []json.RawMessage
		if err := json.Unmarshal(body, &parts); err != nil {
			return frame{}, fmt.Errorf("csgoempire: decode event: %w", err)
		}
		if len(parts) == 0 {
			return frame{}, fmt.Errorf("csgoempire: event without name")
		}
		var name string
		if err := json.Unmarshal(parts[0], &name); err != nil {
			return frame{}, fmt.Errorf("csgoempire: decode event name: %w", err)
		}
		f := frame{kind: frameEvent, event: name}
		if len(parts) > 1 {
			f.payload = parts[1]
		}
		return f, nil
	default:
		return frame{kind: frameIgnore}, nil
	}
}

// trimNamespace drops a leading "/namespace," prefix from a socket.io body.
func trimNamespace(body []byte) []byte {
	if len(body) == 0 || body[0] != '/' {
		return body
	}
	if i := bytes.IndexByte(body, ','); i >= 0 {
		return body[i+1:]
	}
	// A bare namespace (connect ack) has no trailing body.
	return nil
}

// encodePing returns the engine.io heartbeat packet.
func encodePing() []byte {
	return []byte{eioPing}
}

// encodeNamespaceConnect returns the socket.io connect packet for ns
// (e.g. "/trade").
func encodeNamespaceConnect(ns string) []byte {
	if ns == "" || ns == "/" {
		return []byte{eioMessage, sioConnect}
	}
	return []byte("40" + ns + ",")
}

// encodeEvent returns the socket.io event packet for ns carrying
// ["name", arg].
func encodeEvent(ns, name string, arg any) ([]byte, error) {
	body, err := json.Marshal([]any{name, arg})
	if err != nil {
		return nil, fmt.Errorf("csgoempire: encode event %s: %w", name, err)
	}
	var buf bytes.Buffer
	buf.WriteByte(eioMessage)
	buf.WriteByte(sioEvent)
	if ns != "" && ns != "/" {
		buf.WriteString(ns)
		buf.WriteByte(',')
	}
	buf.Write(body)
	return buf.Bytes(), nil
}
