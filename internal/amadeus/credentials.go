package amadeus

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	tokenPath = "/v1/security/oauth2/token"
	// ExpiryMargin is subtracted from a token's lifetime so a request never
	// starts with a token about to expire mid-flight.
	ExpiryMargin = 10 * time.Second
)

// TokenFetcher performs one client-credentials exchange.
type TokenFetcher func(ctx context.Context) (*oauth2.Token, error)

// TokenProvider hands out bearer tokens to the client.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// CredentialManager owns the Amadeus access token.  Concurrent callers that
// find the token missing or near expiry share a single refresh.
type CredentialManager struct {
	fetch     TokenFetcher
	now       func() time.Time
	timeout   time.Duration
	onRefresh func()

	mu        sync.RWMutex
	token     string
	expiresAt time.Time // zero when the server sent no expires_in

	group singleflight.Group
}

// NewCredentialManager exchanges cfg's client id/secret against
// <BaseURL>/v1/security/oauth2/token using httpClient.
func NewCredentialManager(cfg Config, httpClient *http.Client) *CredentialManager {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.baseURL() + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	fetch := func(ctx context.Context) (*oauth2.Token, error) {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		return cc.Token(ctx)
	}
	m := NewCredentialManagerWithFetcher(fetch, time.Now)
	m.timeout = cfg.timeout()
	return m
}

// NewCredentialManagerWithFetcher builds a manager around an arbitrary
// exchange and clock.
func NewCredentialManagerWithFetcher(fetch TokenFetcher, now func() time.Time) *CredentialManager {
	return &CredentialManager{fetch: fetch, now: now, timeout: DefaultTimeout}
}

// OnRefresh registers a hook called after every successful exchange.
func (m *CredentialManager) OnRefresh(fn func()) { m.onRefresh = fn }

func (m *CredentialManager) cached() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return "", false
	}
	if !m.expiresAt.IsZero() && !m.expiresAt.After(m.now().Add(ExpiryMargin)) {
		return "", false
	}
	return m.token, true
}

// Token returns a bearer token valid for at least ExpiryMargin.  The refresh
// runs detached from ctx so one cancelled caller does not fail the others
// waiting on it; a cancelled caller stops waiting immediately.
func (m *CredentialManager) Token(ctx context.Context) (string, error) {
	if tok, ok := m.cached(); ok {
		return tok, nil
	}
	ch := m.group.DoChan("token", func() (any, error) {
		if tok, ok := m.cached(); ok {
			return tok, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		t, err := m.fetch(rctx)
		if err != nil {
			return "", tokenError(err)
		}
		if t == nil || t.AccessToken == "" {
			return "", &UpstreamError{Detail: "amadeus token response carried no access_token"}
		}
		m.mu.Lock()
		m.token = t.AccessToken
		m.expiresAt = t.Expiry
		m.mu.Unlock()
		if m.onRefresh != nil {
			m.onRefresh()
		}
		return t.AccessToken, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token, forcing the next Token call to refresh.
func (m *CredentialManager) Invalidate() {
	m.mu.Lock()
	m.token = ""
	m.expiresAt = time.Time{}
	m.mu.Unlock()
}

func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		ue := newUpstreamError(status, re.Body, err)
		if ue.Detail == genericFailure && re.ErrorDescription != "" {
			ue.Detail = re.ErrorDescription
		}
		return ue
	}
	return &UpstreamError{Detail: "amadeus token request failed", Err: err}
}
