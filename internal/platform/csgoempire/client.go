// Package csgoempire is the venue adapter for the CSGOEmpire marketplace:
// the REST metadata client, the short-lived credential provider, and the
// websocket trade-stream session.
package csgoempire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/skintools/empirescan/internal/domain"
)

// Client is the REST client for the CSGOEmpire API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a REST client for the given marketplace domain
// (e.g. "csgoempire.com").
func NewClient(domain, apiKey string) *Client {
	return &Client{
		baseURL: "https://" + domain,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SocketMetadata fetches the short-lived socket credentials. The bearer
// header form is tried first; some deployment environments strip custom
// headers, so any non-2xx answer is retried once with the API key as a query
// parameter.
func (c *Client) SocketMetadata(ctx context.Context) (domain.SessionCredentials, error) {
	creds, status, err := c.fetchMetadata(ctx, true)
	if err == nil {
		return creds, nil
	}
	if status == 0 {
		// Transport-level failure; the fallback would hit the same network.
		return domain.SessionCredentials{}, err
	}

	creds, _, err = c.fetchMetadata(ctx, false)
	if err != nil {
		return domain.SessionCredentials{}, err
	}
	return creds, nil
}

// fetchMetadata performs a single metadata request. status is the HTTP status
// code when a response was received, 0 otherwise.
func (c *Client) fetchMetadata(ctx context.Context, bearer bool) (domain.SessionCredentials, int, error) {
	endpoint := c.baseURL + "/api/v2/metadata/socket"
	if !bearer {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.SessionCredentials{}, 0, fmt.Errorf("csgoempire: create metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "empirescan API Bot")
	if bearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.SessionCredentials{}, 0, fmt.Errorf("%w: %v", domain.ErrCredentialFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.SessionCredentials{}, resp.StatusCode,
			fmt.Errorf("%w: status %d: %s", domain.ErrCredentialFetch, resp.StatusCode, string(body))
	}

	var meta socketMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return domain.SessionCredentials{}, resp.StatusCode,
			fmt.Errorf("%w: decode metadata: %v", domain.ErrCredentialFetch, err)
	}
	if meta.SocketToken == "" || meta.SocketSignature == "" {
		return domain.SessionCredentials{}, resp.StatusCode,
			fmt.Errorf("%w: metadata missing socket token or signature", domain.ErrCredentialFetch)
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(meta.User, &user); err != nil {
		return domain.SessionCredentials{}, resp.StatusCode,
			fmt.Errorf("%w: decode user: %v", domain.ErrCredentialFetch, err)
	}

	return domain.SessionCredentials{
		UserID:    user.ID,
		UserModel: meta.User,
		Token:     meta.SocketToken,
		Signature: meta.SocketSignature,
		FetchedAt: time.Now(),
	}, resp.StatusCode, nil
}
