package csgoempire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skintools/empirescan/internal/domain"
)

const metadataBody = `{
	"user": {"id": 303119, "balance": 1000},
	"socket_token": "tok-1",
	"socket_signature": "sig-1"
}`

func newTestClient(srv *httptest.Server, apiKey string) *Client {
	return &Client{
		baseURL:    srv.URL,
		apiKey:     apiKey,
		httpClient: srv.Client(),
	}
}

func TestSocketMetadataBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(metadataBody))
	}))
	defer srv.Close()

	creds, err := newTestClient(srv, "key-abc").SocketMetadata(context.Background())
	if err != nil {
		t.Fatalf("SocketMetadata error = %v", err)
	}
	if gotAuth != "Bearer key-abc" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer key-abc")
	}
	if creds.UserID != 303119 {
		t.Errorf("UserID = %d, want 303119", creds.UserID)
	}
	if creds.Token != "tok-1" || creds.Signature != "sig-1" {
		t.Errorf("creds = %+v", creds)
	}
	if len(creds.UserModel) == 0 {
		t.Error("UserModel is empty, want the raw user object")
	}
}

func TestSocketMetadataQueryFallback(t *testing.T) {
	// First request (bearer) is refused; the retry with ?key= succeeds.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(metadataBody))
	}))
	defer srv.Close()

	creds, err := newTestClient(srv, "key-abc").SocketMetadata(context.Background())
	if err != nil {
		t.Fatalf("SocketMetadata error = %v", err)
	}
	if creds.Token != "tok-1" {
		t.Errorf("Token = %q, want %q", creds.Token, "tok-1")
	}
}

func TestSocketMetadataBothRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, "key-abc").SocketMetadata(context.Background())
	if !errors.Is(err, domain.ErrCredentialFetch) {
		t.Fatalf("error = %v, want ErrCredentialFetch", err)
	}
}

func TestSocketMetadataMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"id":1},"socket_token":"","socket_signature":"sig"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, "k").SocketMetadata(context.Background())
	if !errors.Is(err, domain.ErrCredentialFetch) {
		t.Fatalf("error = %v, want ErrCredentialFetch", err)
	}
}

func TestSocketMetadataTransportFailureNoFallback(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	srv.Close() // refuse all connections

	c := &Client{
		baseURL:    srv.URL,
		apiKey:     "k",
		httpClient: &http.Client{Timeout: time.Second},
	}
	_, err := c.SocketMetadata(context.Background())
	if !errors.Is(err, domain.ErrCredentialFetch) {
		t.Fatalf("error = %v, want ErrCredentialFetch", err)
	}
	if hits != 0 {
		t.Errorf("server hits = %d, want 0", hits)
	}
}
