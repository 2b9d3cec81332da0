package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/matchvault/backend/internal/apperr"
)

const (
	// TokenRefreshMargin renews a token this long before it expires.
	TokenRefreshMargin = 5 * time.Minute
	// defaultTokenTTL applies when the token endpoint omits expires_in.
	defaultTokenTTL = time.Hour
	// defaultTokenTimeout bounds a shared fetch once it no longer follows the first caller.
	defaultTokenTimeout = 30 * time.Second
)

// TokenFetcher obtains a fresh access token. *clientcredentials.Config implements it.
type TokenFetcher interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// TokenCache keeps one access token in memory and refreshes it when it is
// within TokenRefreshMargin of expiry. Concurrent refreshes share one fetch.
type TokenCache struct {
	fetcher TokenFetcher
	margin  time.Duration
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	group     singleflight.Group
}

// NewTokenCache creates a cache around fetcher.
func NewTokenCache(fetcher TokenFetcher) *TokenCache {
	return &TokenCache{fetcher: fetcher, margin: TokenRefreshMargin, timeout: defaultTokenTimeout, now: time.Now}
}

// Token returns a cached token or fetches a new one. Fetch failures are auth errors.
// A caller whose context ends while waiting gets a non-fatal error; the shared fetch
// carries on for the other waiters.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}
	ch := c.group.DoChan("token", func() (any, error) {
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		t, err := c.fetcher.Token(fetchCtx)
		if err != nil {
			if ctxErr := fetchCtx.Err(); ctxErr != nil {
				return "", apperr.Upstream("fetch access token", ctxErr)
			}
			return "", apperr.Auth("fetch access token", err)
		}
		if t == nil || t.AccessToken == "" {
			return "", apperr.Auth("fetch access token", errors.New("empty access token"))
		}
		expiresAt := t.Expiry
		if expiresAt.IsZero() {
			expiresAt = c.now().Add(defaultTokenTTL)
		}
		c.mu.Lock()
		c.token, c.expiresAt = t.AccessToken, expiresAt
		c.mu.Unlock()
		return t.AccessToken, nil
	})
	select {
	case <-ctx.Done():
		return "", apperr.Upstream("fetch access token", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token, e.g. after the platform rejected it.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token, c.expiresAt = "", time.Time{}
	c.mu.Unlock()
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", false
	}
	if !c.now().Add(c.margin).Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}
