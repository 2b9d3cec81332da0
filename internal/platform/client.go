// Package platform is the client for the external video platform's session directory:
// finished sessions, productions, download exports and their download locators.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/matchvault/backend/internal/apperr"
)

const (
	headerUserID    = "X-User-Id"
	defaultPageSize = 100
	maxErrorBody    = 512
)

// ClientConfig holds endpoint settings shared by every account.
type ClientConfig struct {
	BaseURL  string
	TokenURL string
	Scopes   []string
	Timeout  time.Duration
}

// Client talks to the platform on behalf of one account. It is stateless per call
// apart from its token cache.
type Client struct {
	baseURL string
	account AccountConfig
	http    *http.Client
	tokens  *TokenCache
	logger  *zap.Logger
}

// NewClient creates a client for a resolved account using OAuth2 client credentials.
func NewClient(cfg ClientConfig, account AccountConfig, logger *zap.Logger) (*Client, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" || cfg.TokenURL == "" {
		return nil, apperr.Config("platform client", "base url and token url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	cc := &clientcredentials.Config{
		ClientID:     account.ClientID,
		ClientSecret: account.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	fetcher := contextFetcher{cfg: cc, http: httpClient}
	tokens := NewTokenCache(fetcher)
	tokens.timeout = timeout
	return newClient(cfg.BaseURL, account, httpClient, tokens, logger), nil
}

func newClient(baseURL string, account AccountConfig, httpClient *http.Client, tokens *TokenCache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		account: account,
		http:    httpClient,
		tokens:  tokens,
		logger:  logger.With(zap.String("platform_account", account.Key)),
	}
}

// contextFetcher makes the token request use the client's http.Client.
type contextFetcher struct {
	cfg  *clientcredentials.Config
	http *http.Client
}

func (f contextFetcher) Token(ctx context.Context) (*oauth2.Token, error) {
	return f.cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, f.http))
}

// AccountID returns the platform account this client is bound to.
func (c *Client) AccountID() string { return c.account.AccountID }

// CheckCredentials fetches (or reuses) an access token, surfacing auth failures without touching sessions.
func (c *Client) CheckCredentials(ctx context.Context) error {
	_, err := c.tokens.Token(ctx)
	return err
}

// ListSessions returns every session of the account, following pagination.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	return listAll[Session](ctx, c, "/accounts/"+url.PathEscape(c.account.AccountID)+"/sessions")
}

// listAll walks a paginated list endpoint until next is empty or repeats.
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	seen := map[string]bool{}
	cursor := ""
	for {
		q := url.Values{}
		q.Set("page_size", fmt.Sprint(defaultPageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var p page[T]
		if err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		if p.Next == "" || seen[p.Next] {
			return all, nil
		}
		seen[p.Next] = true
		cursor = p.Next
	}
}

// ListFinishedSessions returns only sessions in the finished state.
func (c *Client) ListFinishedSessions(ctx context.Context) ([]Session, error) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	finished := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if s.Finished() {
			finished = append(finished, s)
		}
	}
	c.logger.Debug("listed sessions", zap.Int("total", len(sessions)), zap.Int("finished", len(finished)))
	return finished, nil
}

// GetProductions returns the productions attached to a session.
func (c *Client) GetProductions(ctx context.Context, sessionID string) ([]Production, error) {
	return listAll[Production](ctx, c, "/sessions/"+url.PathEscape(sessionID)+"/productions")
}

// LiveProduction returns the session's live production. Absence is a not-found error.
func (c *Client) LiveProduction(ctx context.Context, sessionID string) (Production, error) {
	productions, err := c.GetProductions(ctx, sessionID)
	if err != nil {
		return Production{}, err
	}
	for _, p := range productions {
		if p.Type == ProductionTypeLive {
			return p, nil
		}
	}
	return Production{}, apperr.NotFound("live production "+sessionID, "no live production found")
}

// ListExports returns every export attached to a production, following pagination.
func (c *Client) ListExports(ctx context.Context, productionID string) ([]Export, error) {
	return listAll[Export](ctx, c, "/productions/"+url.PathEscape(productionID)+"/exports")
}

// GetOrCreateDownloadExport returns the production's existing download export or creates one.
// Listing first keeps repeated calls from creating duplicates.
func (c *Client) GetOrCreateDownloadExport(ctx context.Context, productionID string) (Export, error) {
	exports, err := c.ListExports(ctx, productionID)
	if err != nil {
		return Export{}, err
	}
	for _, e := range exports {
		if e.Kind == ExportKindDownload {
			return e, nil
		}
	}
	var created Export
	body := map[string]string{"kind": ExportKindDownload}
	if err := c.do(ctx, http.MethodPost, "/productions/"+url.PathEscape(productionID)+"/exports", body, &created); err != nil {
		return Export{}, err
	}
	if created.ID == "" {
		return Export{}, apperr.New(apperr.KindUpstream, "create export", "response missing export id")
	}
	c.logger.Info("download export created", zap.String("production_id", productionID), zap.String("export_id", created.ID))
	return created, nil
}

// PollExportProgress performs a single progress read; it never waits.
func (c *Client) PollExportProgress(ctx context.Context, exportID string) (int, error) {
	e, err := c.getExport(ctx, exportID)
	if err != nil {
		return 0, err
	}
	return e.ProgressPercent, nil
}

// GetDownloadLocator returns the time-limited download URL of a completed export.
func (c *Client) GetDownloadLocator(ctx context.Context, exportID string) (string, error) {
	e, err := c.getExport(ctx, exportID)
	if err != nil {
		return "", err
	}
	if !e.Done() {
		return "", apperr.New(apperr.KindUpstream, "download locator "+exportID, fmt.Sprintf("export not ready (%d%%)", e.ProgressPercent))
	}
	if e.DownloadURL == "" {
		return "", apperr.New(apperr.KindUpstream, "download locator "+exportID, "response missing download url")
	}
	return e.DownloadURL, nil
}

func (c *Client) getExport(ctx context.Context, exportID string) (Export, error) {
	var e Export
	if err := c.do(ctx, http.MethodGet, "/exports/"+url.PathEscape(exportID), nil, &e); err != nil {
		return Export{}, err
	}
	return e, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + strings.SplitN(path, "?", 2)[0]
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(headerUserID, c.account.UserID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Upstream(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperr.Wrapf(apperr.KindUpstream, op, nil, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrapf(apperr.KindUpstream, op, err, "malformed response")
	}
	return nil
}
