// Package authclient is the calling side of the token lifecycle. Its
// Coordinator attaches the stored access token to outgoing requests and,
// when many of them hit an expired token at once, runs a single refresh
// that all of them wait on.
package authclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired is the terminal client state: the refresh failed or
// the server kept refusing the new token. The caller must log in again.
var ErrSessionExpired = errors.New("authclient: session expired")

// Call is what a Step sees: the outgoing request and the tokens it will
// carry. Retried is set on the one re-dispatch after a refresh.
type Call struct {
	Request *http.Request
	Tokens  Tokens
	Retried bool
}

// Step is one stage of the outgoing request pipeline.
type Step func(call *Call) error

// AttachBearer sets the Authorization header from the call's access token.
func AttachBearer(call *Call) error {
	if call.Tokens.AccessToken != "" {
		call.Request.Header.Set("Authorization", "Bearer "+call.Tokens.AccessToken)
	}
	return nil
}

// Options configures a Coordinator. Store and Refresher are required.
type Options struct {
	Transport http.RoundTripper
	Store     TokenStore
	Refresher Refresher

	// Steps run after AttachBearer, in order.
	Steps []Step
	// AuthPaths bypass the pipeline and are never refreshed or retried.
	AuthPaths []string

	RefreshTimeout time.Duration
	// OnSessionExpired fires once per failed refresh, after the stored
	// tokens are cleared.
	OnSessionExpired func()
	Logger           *slog.Logger
}

func (o Options) withDefaults() Options {
	out := o
	if out.Transport == nil {
		out.Transport = http.DefaultTransport
	}
	if len(out.AuthPaths) == 0 {
		out.AuthPaths = []string{"/auth/login", "/auth/refresh"}
	}
	if out.RefreshTimeout <= 0 {
		out.RefreshTimeout = 10 * time.Second
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Coordinator is an http.RoundTripper. At most one refresh is in flight
// per Coordinator; every request that saw a 401 meanwhile waits on it and
// is retried at most once.
type Coordinator struct {
	base      http.RoundTripper
	store     TokenStore
	refresher Refresher
	steps     []Step
	authPaths []string
	timeout   time.Duration
	onExpired func()
	log       *slog.Logger

	flight singleflight.Group
	// mu orders clears of the store against each other.
	mu sync.Mutex
}

func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Store == nil || opts.Refresher == nil {
		return nil, errors.New("authclient: store and refresher are required")
	}
	opts = opts.withDefaults()
	return &Coordinator{
		base:      opts.Transport,
		store:     opts.Store,
		refresher: opts.Refresher,
		steps:     append([]Step{AttachBearer}, opts.Steps...),
		authPaths: opts.AuthPaths,
		timeout:   opts.RefreshTimeout,
		onExpired: opts.OnSessionExpired,
		log:       opts.Logger,
	}, nil
}

func (c *Coordinator) RoundTrip(req *http.Request) (*http.Response, error) {
	if c.isAuthPath(req) {
		return c.base.RoundTrip(req)
	}
	ctx := req.Context()

	tokens, err := c.store.Load(ctx)
	if err != nil && !errors.Is(err, ErrNoTokens) {
		closeBody(req)
		return nil, err
	}

	resp, err := c.dispatch(req, req.Body, tokens, false)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if !replayable(req) {
		return resp, nil
	}
	drain(resp)

	fresh, err := c.refresh(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	body, err := rewind(req)
	if err != nil {
		return nil, err
	}
	resp, err = c.dispatch(req, body, fresh, true)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.expire(ctx, fresh.AccessToken)
		return nil, fmt.Errorf("%w: token refused after refresh", ErrSessionExpired)
	}
	return resp, nil
}

func (c *Coordinator) dispatch(req *http.Request, body io.ReadCloser, tokens Tokens, retried bool) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Body = body
	call := &Call{Request: out, Tokens: tokens, Retried: retried}
	for _, step := range c.steps {
		if err := step(call); err != nil {
			if body != nil {
				_ = body.Close()
			}
			return nil, err
		}
	}
	return c.base.RoundTrip(call.Request)
}

// refresh joins the pending refresh or starts one. stale is the access
// token the failed request carried.
func (c *Coordinator) refresh(ctx context.Context, stale string) (Tokens, error) {
	ch := c.flight.DoChan("refresh", func() (any, error) {
		return c.doRefresh(context.WithoutCancel(ctx), stale)
	})
	select {
	case <-ctx.Done():
		return Tokens{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Tokens{}, res.Err
		}
		return res.Val.(Tokens), nil
	}
}

func (c *Coordinator) doRefresh(ctx context.Context, stale string) (Tokens, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cur, err := c.store.Load(ctx)
	if err != nil && !errors.Is(err, ErrNoTokens) {
		return Tokens{}, c.fail(ctx, err)
	}
	// Another refresh already replaced the token this request used.
	if cur.AccessToken != "" && cur.AccessToken != stale {
		return cur, nil
	}
	if cur.RefreshToken == "" {
		return Tokens{}, c.fail(ctx, ErrNoTokens)
	}

	fresh, err := c.refresher.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		return Tokens{}, c.fail(ctx, err)
	}
	if err := c.store.Save(ctx, fresh); err != nil {
		return Tokens{}, c.fail(ctx, err)
	}
	c.log.Debug("access token refreshed")
	return fresh, nil
}

func (c *Coordinator) fail(ctx context.Context, cause error) error {
	c.log.Warn("token refresh failed", "err", cause)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked(ctx)
	return fmt.Errorf("%w: %v", ErrSessionExpired, cause)
}

// expire clears the store unless it already moved past accessToken.
func (c *Coordinator) expire(ctx context.Context, accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, err := c.store.Load(ctx)
	if err != nil || cur.AccessToken != accessToken {
		return
	}
	c.clearLocked(ctx)
}

func (c *Coordinator) clearLocked(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error("clearing tokens failed", "err", err)
	}
	if c.onExpired != nil {
		c.onExpired()
	}
}

func (c *Coordinator) isAuthPath(req *http.Request) bool {
	for _, p := range c.authPaths {
		if strings.HasSuffix(req.URL.Path, p) {
			return true
		}
	}
	return false
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func rewind(req *http.Request) (io.ReadCloser, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Body, nil
	}
	return req.GetBody()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
