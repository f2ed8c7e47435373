package csgoempire

import (
	"bytes"
	"testing"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind frameKind
		wantEvt  string
		wantErr  bool
	}{
		{
			name:     "open frame with handshake",
			input:    `0{"sid":"abc123","pingInterval":25000,"pingTimeout":5000}`,
			wantKind: frameOpen,
		},
		{
			name:     "close frame",
			input:    "1",
			wantKind: frameClose,
		},
		{
			name:     "ping frame",
			input:    "2",
			wantKind: framePing,
		},
		{
			name:     "pong frame",
			input:    "3",
			wantKind: framePong,
		},
		{
			name:     "namespace connect ack",
			input:    "40/trade,",
			wantKind: frameConnect,
		},
		{
			name:     "event without namespace",
			input:    `42["timesync",1700000000]`,
			wantKind: frameEvent,
			wantEvt:  "timesync",
		},
		{
			name:     "event with namespace prefix",
			input:    `42/trade,["new_item",{"id":1}]`,
			wantKind: frameEvent,
			wantEvt:  "new_item",
		},
		{
			name:     "event with ack id digits",
			input:    `42/trade,7["init",{"authenticated":true}]`,
			wantKind: frameEvent,
			wantEvt:  "init",
		},
		{
			name:     "socket.io error packet",
			input:    `44/trade,"Invalid token"`,
			wantKind: frameError,
		},
		{
			name:     "disconnect packet",
			input:    "41/trade,",
			wantKind: frameDisconnect,
		},
		{
			name:     "unknown engine.io type ignored",
			input:    "6",
			wantKind: frameIgnore,
		},
		{
			name:    "empty frame",
			input:   "",
			wantErr: true,
		},
		{
			name:    "malformed open payload",
			input:   "0{not json",
			wantErr: true,
		},
		{
			name:    "event with truncated json",
			input:   `42["new_item"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := decodeFrame([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("decodeFrame(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeFrame(%q) error = %v", tt.input, err)
			}
			if f.kind != tt.wantKind {
				t.Errorf("kind = %d, want %d", f.kind, tt.wantKind)
			}
			if tt.wantEvt != "" && f.event != tt.wantEvt {
				t.Errorf("event = %q, want %q", f.event, tt.wantEvt)
			}
		})
	}
}

func TestDecodeFrameOpenPayload(t *testing.T) {
	f, err := decodeFrame([]byte(`0{"sid":"s1","pingInterval":30000,"pingTimeout":6000}`))
	if err != nil {
		t.Fatalf("decodeFrame error = %v", err)
	}
	if f.open.SID != "s1" {
		t.Errorf("sid = %q, want %q", f.open.SID, "s1")
	}
	if f.open.PingInterval != 30000 {
		t.Errorf("pingInterval = %d, want 30000", f.open.PingInterval)
	}
}

func TestDecodeFrameEventPayload(t *testing.T) {
	f, err := decodeFrame([]byte(`42/trade,["new_item",{"id":42,"market_name":"AK-47"}]`))
	if err != nil {
		t.Fatalf("decodeFrame error = %v", err)
	}
	want := `{"id":42,"market_name":"AK-47"}`
	if string(f.payload) != want {
		t.Errorf("payload = %s, want %s", f.payload, want)
	}
}

func TestEncodeNamespaceConnect(t *testing.T) {
	tests := []struct {
		ns   string
		want string
	}{
		{"/trade", "40/trade,"},
		{"", "40"},
		{"/", "40"},
	}
	for _, tt := range tests {
		if got := encodeNamespaceConnect(tt.ns); string(got) != tt.want {
			t.Errorf("encodeNamespaceConnect(%q) = %q, want %q", tt.ns, got, tt.want)
		}
	}
}

func TestEncodeEvent(t *testing.T) {
	got, err := encodeEvent("/trade", "filters", filtersFrame{PriceMax: 100})
	if err != nil {
		t.Fatalf("encodeEvent error = %v", err)
	}
	want := `42/trade,["filters",{"price_min":0,"price_max":100}]`
	if string(got) != want {
		t.Errorf("encodeEvent = %s, want %s", got, want)
	}

	// Round trip through the decoder.
	f, err := decodeFrame(got)
	if err != nil {
		t.Fatalf("decodeFrame(encoded) error = %v", err)
	}
	if f.kind != frameEvent || f.event != "filters" {
		t.Errorf("round trip kind=%d event=%q", f.kind, f.event)
	}
	if !bytes.Equal(f.payload, []byte(`{"price_min":0,"price_max":100}`)) {
		t.Errorf("round trip payload = %s", f.payload)
	}
}

func TestEncodePing(t *testing.T) {
	if got := encodePing(); string(got) != "2" {
		t.Errorf("encodePing = %q, want %q", got, "2")
	}
}
