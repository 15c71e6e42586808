package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Refresher exchanges a refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// APIError is a non-2xx answer from the auth endpoints.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("authclient: http %d", e.Status)
	}
	return fmt.Sprintf("authclient: http %d: %s", e.Status, e.Code)
}

// HTTPRefresher calls POST {BaseURL}/auth/refresh.
type HTTPRefresher struct {
	BaseURL string
	// HTTP must not route through a Coordinator.
	HTTP *http.Client
}

func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	var t Tokens
	err := postJSON(ctx, r.client(), r.BaseURL+"/auth/refresh", map[string]string{"refreshToken": refreshToken}, &t)
	return t, err
}

func (r *HTTPRefresher) client() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return http.DefaultClient
}

func postJSON(ctx context.Context, hc *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	_ = json.Unmarshal(raw, &body)
	return &APIError{Status: resp.StatusCode, Code: strings.TrimSpace(body.Error)}
}
