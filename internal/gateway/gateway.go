// Package gateway sends requests to the expense backend with the session's
// bearer credential and recovers from expired credentials by refreshing
// once and replaying.
//
// Only one refresh call is ever in flight. Requests that fail with a
// recoverable status while it runs wait in an ordered queue and are released
// with its single outcome, in the order they were queued. Each released
// waiter hands on to the next once the backend has answered its replay, so
// replays reach the backend in queue order.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"budgetbook/internal/log"
)

const (
	DefaultRefreshPath   = "/refresh-token"
	DefaultRefreshCookie = "refreshToken"
	DefaultTimeout       = 15 * time.Second

	maxResponseBytes = 8 << 20
)

// CredentialStore holds the bearer credential. Implementations must be safe
// for concurrent use.
type CredentialStore interface {
	Token() string
	// Store saves a refreshed credential; refreshToken may be empty.
	Store(token, refreshToken string) error
	// Clear drops the credential and any persisted session.
	Clear() error
}

// Config configures a Gateway.
type Config struct {
	BaseURL string
	// RefreshPath is called with GET to exchange the refresh cookie for a
	// new bearer token.
	RefreshPath string
	// RecoverStatuses lists the statuses that trigger a refresh. Defaults
	// to 401 and 403.
	RecoverStatuses []int
	RefreshCookie   string
	Timeout         time.Duration
}

type Request struct {
	Method string
	// Path is relative to the base URL and may carry a query string.
	Path   string
	Body   []byte
	Header http.Header

	// SkipRecovery returns a recoverable status as is. Used by the
	// unauthenticated endpoints, where a 401 means bad credentials.
	SkipRecovery bool
}

// NewJSONRequest encodes v as the request body. A nil v sends no body.
func NewJSONRequest(method, path string, v any) (*Request, error) {
	req := &Request{Method: method, Path: path, Header: http.Header{}}
	if v == nil {
		return req, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
	}
	req.Body = body
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type refreshResult struct {
	token string
	err   error
	// next releases the following waiter; safe to call more than once.
	next func()
}

func noop() {}

type Gateway struct {
	base          *url.URL
	refreshPath   string
	refreshCookie string
	recoverable   map[int]bool
	timeout       time.Duration
	client        *http.Client
	creds         CredentialStore
	logger        *log.Logger
	metrics       *Metrics

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

func New(cfg Config, creds CredentialStore, logger *log.Logger, metrics *Metrics) (*Gateway, error) {
	if creds == nil {
		return nil, errors.New("gateway: credential store is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base URL %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = DefaultRefreshPath
	}
	if cfg.RefreshCookie == "" {
		cfg.RefreshCookie = DefaultRefreshCookie
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	statuses := cfg.RecoverStatuses
	if len(statuses) == 0 {
		statuses = []int{http.StatusUnauthorized, http.StatusForbidden}
	}
	recoverable := make(map[int]bool, len(statuses))
	for _, s := range statuses {
		recoverable[s] = true
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Gateway{
		base:          base,
		refreshPath:   cfg.RefreshPath,
		refreshCookie: cfg.RefreshCookie,
		recoverable:   recoverable,
		timeout:       cfg.Timeout,
		client:        &http.Client{Jar: jar, Timeout: cfg.Timeout},
		creds:         creds,
		logger:        logger.WithComponent(log.ComponentGateway),
		metrics:       metrics,
	}, nil
}

// Send issues req with the current credential. A recoverable status
// triggers at most one recovery and one replay; any other non-2xx status
// is returned as *StatusError.
func (g *Gateway) Send(ctx context.Context, req *Request) (*Response, error) {
	token := g.creds.Token()
	res, err := g.do(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if success(res.StatusCode) {
		return res, nil
	}
	if req.SkipRecovery || !g.recoverable[res.StatusCode] {
		return nil, newStatusError(res.StatusCode, res.Body)
	}

	fresh, next, err := g.recover(ctx, token)
	defer next()
	if err != nil {
		return nil, err
	}
	g.metrics.observeReplay()
	g.logger.DebugContext(ctx, "replaying request", log.FieldMethod, req.Method, log.FieldPath, req.Path)

	traced := httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GotFirstResponseByte: next,
	})
	res, err = g.do(traced, req, fresh)
	if err != nil {
		return nil, err
	}
	if !success(res.StatusCode) {
		return nil, newStatusError(res.StatusCode, res.Body)
	}
	return res, nil
}

// SendJSON sends req and decodes a 2xx body into out when out is not nil.
func (g *Gateway) SendJSON(ctx context.Context, req *Request, out any) error {
	res, err := g.Send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(res.Body) == 0 {
		return nil
	}
	return res.Decode(out)
}

// recover returns a credential to replay with. stale is the token the
// failed request was sent with. The caller must call next once its replay
// has been answered or abandoned.
func (g *Gateway) recover(ctx context.Context, stale string) (token string, next func(), err error) {
	g.mu.Lock()
	current := g.creds.Token()
	if current != stale {
		g.mu.Unlock()
		if current == "" {
			// Torn down after a failed refresh or a logout.
			return "", noop, &ReauthRequiredError{Err: errors.New("session cleared")}
		}
		return current, noop, nil
	}
	if g.refreshing {
		ch := make(chan refreshResult, 1)
		g.waiters = append(g.waiters, ch)
		queued := len(g.waiters)
		g.mu.Unlock()
		g.metrics.queueDelta(1)
		g.logger.DebugContext(ctx, "waiting for credential refresh", log.FieldQueued, queued)

		select {
		case res := <-ch:
			return res.token, res.next, res.err
		case <-ctx.Done():
			// Keep the chain moving for whoever queued behind us.
			go func() { (<-ch).next() }()
			return "", noop, ctx.Err()
		}
	}
	g.refreshing = true
	g.mu.Unlock()

	token, err = g.refresh(ctx)

	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.refreshing = false
	g.mu.Unlock()

	var result refreshResult
	if err != nil {
		result.err = &ReauthRequiredError{Err: err}
	} else {
		result.token = token
	}
	g.metrics.queueDelta(-len(waiters))
	release(waiters, result, 0)

	if err != nil {
		return "", noop, result.err
	}
	return token, noop, nil
}

// release hands result to waiters[i]; its next func releases waiters[i+1].
// Channels are buffered, so release never blocks.
func release(waiters []chan refreshResult, result refreshResult, i int) {
	if i >= len(waiters) {
		return
	}
	var once sync.Once
	result.next = func() { once.Do(func() { release(waiters, result, i+1) }) }
	waiters[i] <- result
}

// refresh runs the refresh call on a context detached from the caller so a
// cancelled originator does not fail everyone queued behind it.
func (g *Gateway) refresh(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	g.logger.InfoContext(ctx, "refreshing credential", log.FieldOperation, log.OpRefresh)
	token, refreshToken, err := g.callRefresh(ctx)
	if err != nil {
		g.metrics.observeRefresh(false)
		g.logger.WarnContext(ctx, "credential refresh failed, clearing session",
			log.FieldOperation, log.OpRefresh, log.FieldError, err)
		if cerr := g.creds.Clear(); cerr != nil {
			g.logger.ErrorContext(ctx, "failed to clear session", log.FieldError, cerr)
		}
		g.ForgetRefreshCookie()
		return "", err
	}
	if serr := g.creds.Store(token, refreshToken); serr != nil {
		g.logger.WarnContext(ctx, "refreshed credential not persisted", log.FieldError, serr)
	}
	g.metrics.observeRefresh(true)
	g.logger.InfoContext(ctx, "credential refreshed", log.FieldOperation, log.OpRefresh, log.FieldOutcome, "success")
	return token, nil
}

// callRefresh never goes through recovery: a recoverable status from the
// refresh endpoint is a refresh failure.
func (g *Gateway) callRefresh(ctx context.Context) (string, string, error) {
	res, err := g.do(ctx, &Request{Method: http.MethodGet, Path: g.refreshPath}, g.creds.Token())
	if err != nil {
		return "", "", err
	}
	if !success(res.StatusCode) {
		return "", "", newStatusError(res.StatusCode, res.Body)
	}
	var payload struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := res.Decode(&payload); err != nil {
		return "", "", fmt.Errorf("refresh: %w", err)
	}
	if payload.Token == "" {
		return "", "", errors.New("refresh response carried no token")
	}
	if payload.RefreshToken != "" {
		g.SeedRefreshCookie(payload.RefreshToken)
	}
	return payload.Token, payload.RefreshToken, nil
}

func (g *Gateway) do(ctx context.Context, req *Request, token string) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, g.resolve(req.Path), body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.Method, req.Path, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}
	if token != "" {
		hr.Header.Set("Authorization", "Bearer "+token)
	}
	if hr.Header.Get("Accept") == "" {
		hr.Header.Set("Accept", "application/json")
	}

	res, err := g.client.Do(hr)
	if err != nil {
		g.metrics.observeRequest(req.Method, 0)
		return nil, fmt.Errorf("send %s %s: %w", req.Method, req.Path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		g.metrics.observeRequest(req.Method, 0)
		return nil, fmt.Errorf("read %s %s: %w", req.Method, req.Path, err)
	}
	g.metrics.observeRequest(req.Method, res.StatusCode)
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: data}, nil
}

func (g *Gateway) resolve(path string) string {
	return g.base.String() + "/" + strings.TrimLeft(path, "/")
}

// SeedRefreshCookie puts a stored refresh token back into the cookie jar,
// e.g. after a restart.
func (g *Gateway) SeedRefreshCookie(value string) {
	if value == "" {
		return
	}
	g.client.Jar.SetCookies(g.base, []*http.Cookie{{
		Name:     g.refreshCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
	}})
}

// ForgetRefreshCookie expires the refresh cookie.
func (g *Gateway) ForgetRefreshCookie() {
	g.client.Jar.SetCookies(g.base, []*http.Cookie{{
		Name:   g.refreshCookie,
		Path:   "/",
		MaxAge: -1,
	}})
}

// RefreshCookie returns the refresh token the jar currently holds.
func (g *Gateway) RefreshCookie() string {
	for _, c := range g.client.Jar.Cookies(g.base) {
		if c.Name == g.refreshCookie {
			return c.Value
		}
	}
	return ""
}

func success(code int) bool { return code >= 200 && code < 300 }
