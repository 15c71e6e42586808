package authclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Client talks to the HR API as one identity.
type Client struct {
	baseURL string
	store   TokenStore
	plain   *http.Client
	http    *http.Client
}

// NewClient builds a Client whose protected calls go through a
// Coordinator. opts.Store and opts.Refresher may be left empty: store
// defaults to the one given here and the refresher to HTTPRefresher.
func NewClient(baseURL string, store TokenStore, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" || store == nil {
		return nil, errors.New("authclient: base url and token store are required")
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	plain := &http.Client{Transport: base, Timeout: 30 * time.Second}

	opts.Transport = base
	opts.Store = store
	if opts.Refresher == nil {
		opts.Refresher = &HTTPRefresher{BaseURL: baseURL, HTTP: plain}
	}
	coord, err := NewCoordinator(opts)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: baseURL,
		store:   store,
		plain:   plain,
		http:    &http.Client{Transport: coord, Timeout: 30 * time.Second},
	}, nil
}

// HTTP returns the coordinated client for arbitrary protected calls.
func (c *Client) HTTP() *http.Client { return c.http }

// Login exchanges a secret for tokens and stores them.
func (c *Client) Login(ctx context.Context, subjectID, secret string) error {
	var t Tokens
	in := map[string]string{"subjectId": subjectID, "secret": secret}
	if err := postJSON(ctx, c.plain, c.baseURL+"/auth/login", in, &t); err != nil {
		return err
	}
	return c.store.Save(ctx, t)
}

// Logout revokes the session server side and forgets the tokens locally
// even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	t, err := c.store.Load(ctx)
	if errors.Is(err, ErrNoTokens) {
		return nil
	}
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+t.AccessToken)
	resp, callErr := c.plain.Do(req)
	if callErr == nil {
		callErr = checkStatus(resp)
		resp.Body.Close()
	}

	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	var apiErr *APIError
	if errors.As(callErr, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		// Already expired or revoked server side.
		return nil
	}
	return callErr
}

// Get issues a protected GET for path. Non-2xx answers are *APIError.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}
