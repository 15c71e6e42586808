package authclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAPI accepts exactly one access token at a time and rotates it on
// /auth/refresh.
type fakeAPI struct {
	mu       sync.Mutex
	access   string
	refresh  string
	gen      int
	rejected int

	refreshCalls atomic.Int32
	loginAuth    atomic.Value

	// waitRejected holds refresh until that many 401s were served.
	waitRejected int
	// block, when set, holds refresh until closed or the client gives up.
	block      chan struct{}
	failAll    bool
	rejectAll  bool
	logoutHits atomic.Int32
}

func newFakeAPI(t *testing.T, f *fakeAPI) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", f.handleLogin)
	mux.HandleFunc("/auth/refresh", f.handleRefresh)
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logoutHits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/v1/data", f.handleData)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.loginAuth.Store(r.Header.Get("Authorization"))
	f.mu.Lock()
	t := f.rotateLocked()
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, t)
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		done := f.rejected >= f.waitRejected
		f.mu.Unlock()
		if done {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-r.Context().Done():
			return
		}
	}

	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll || in.RefreshToken != f.refresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "revoked"})
		return
	}
	writeJSON(w, http.StatusOK, f.rotateLocked())
}

func (f *fakeAPI) handleData(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	ok := !f.rejectAll && f.access != "" && r.Header.Get("Authorization") == "Bearer "+f.access
	if !ok {
		f.rejected++
	}
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (f *fakeAPI) rotateLocked() Tokens {
	f.gen++
	f.access = fmt.Sprintf("access-%d", f.gen)
	f.refresh = fmt.Sprintf("refresh-%d", f.gen)
	return Tokens{AccessToken: f.access, RefreshToken: f.refresh, ExpiresIn: 900}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
