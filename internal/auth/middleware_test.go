package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newProtectedRouter(g *Guard) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/v1/me", RequireAccessToken(g), func(c *gin.Context) {
		id, err := IdentityFrom(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject_id": id.SubjectID, "gin_subject": c.GetString("subject_id")})
	})
	return r
}

func doGet(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAccessToken(t *testing.T) {
	k := newKit(t)
	r := newProtectedRouter(k.guard)
	pair := k.issue(t)

	w := doGet(r, "Bearer "+pair.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["subject_id"] != "emp-1" || body["gin_subject"] != "emp-1" {
		t.Fatalf("identity not attached: %v", body)
	}

	for _, h := range []string{"", "Basic abc", "Bearer ", "Bearer junk", "Bearer " + pair.RefreshToken} {
		w := doGet(r, h)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", h, w.Code)
		}
		if w.Body.String() != `{"error":"unauthenticated"}` {
			t.Fatalf("%q: unexpected body %s", h, w.Body.String())
		}
	}

	_ = k.revoker.Logout(context.Background(), pair.AccessToken, "")
	if w := doGet(r, "Bearer "+pair.AccessToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func TestRequireAccessToken_StoreOutageIs503(t *testing.T) {
	k := newKit(t)
	g, _ := NewGuard(k.codec, failingStore{}, nil, WithClock(k.clock.Now))
	pair := k.issue(t)

	w := doGet(newProtectedRouter(g), "Bearer "+pair.AccessToken)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestBearerToken(t *testing.T) {
	if got := BearerToken("  Bearer abc "); got != "abc" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := BearerToken("bearer abc"); got != "" {
		t.Fatalf("scheme is case sensitive, got %q", got)
	}
}
