package csgoempire

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/skintools/empirescan/internal/domain"
)

// Default lifetimes of the socket credential pair: the upstream documents a
// 30 second validity and recommends refreshing at half of that.
const (
	CredentialTTL    = 30 * time.Second
	RefreshThreshold = 15 * time.Second
)

// CredentialProvider caches the last fetched socket credentials and refreshes
// them when they age past the refresh threshold. Concurrent callers during a
// refresh are coalesced into a single in-flight fetch. The provider performs
// no retries of its own; retry policy belongs to the session state machine.
type CredentialProvider struct {
	client  *Client
	refresh time.Duration
	now     func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	cached domain.SessionCredentials
	valid  bool
}

// NewCredentialProvider creates a provider over the given REST client. A
// non-positive refreshThreshold falls back to the default.
func NewCredentialProvider(client *Client, refreshThreshold time.Duration) *CredentialProvider {
	if refreshThreshold <= 0 {
		refreshThreshold = RefreshThreshold
	}
	return &CredentialProvider{
		client:  client,
		refresh: refreshThreshold,
		now:     time.Now,
	}
}

// Get returns credentials younger than the refresh threshold, fetching a new
// set when the cache is absent or aged out. The age check happens at call
// time, so a caller on the far side of a reconnect gap always gets a fresh
// pair.
func (p *CredentialProvider) Get(ctx context.Context) (domain.SessionCredentials, error) {
	if creds, ok := p.fromCache(); ok {
		return creds, nil
	}

	v, err, _ := p.group.Do("socket-metadata", func() (any, error) {
		// A coalesced caller may arrive just after the winner stored its
		// result; re-check before fetching again.
		if creds, ok := p.fromCache(); ok {
			return creds, nil
		}

		creds, err := p.client.SocketMetadata(ctx)
		if err != nil {
			return domain.SessionCredentials{}, err
		}
		creds.FetchedAt = p.now()

		p.mu.Lock()
		p.cached = creds
		p.valid = true
		p.mu.Unlock()

		return creds, nil
	})
	if err != nil {
		return domain.SessionCredentials{}, err
	}
	return v.(domain.SessionCredentials), nil
}

// Invalidate drops the cached credentials so the next Get fetches a new set.
// Used by identify retries and the hard-reset path.
func (p *CredentialProvider) Invalidate() {
	p.mu.Lock()
	p.valid = false
	p.cached = domain.SessionCredentials{}
	p.mu.Unlock()
}

func (p *CredentialProvider) fromCache() (domain.SessionCredentials, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.valid && p.cached.Age(p.now()) < p.refresh {
		return p.cached, true
	}
	return domain.SessionCredentials{}, false
}
