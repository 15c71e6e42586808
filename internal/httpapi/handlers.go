package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"hr-platform/internal/auth"
	"hr-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Issuer  *auth.Issuer
	Rotator *auth.Rotator
	Guard   *auth.Guard
	Revoker *auth.Revoker
}

type loginRequest struct {
	SubjectID string `json:"subjectId"`
	Secret    string `json:"secret"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func newTokenResponse(p auth.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, ExpiresIn: p.ExpiresIn}
}

// --- Auth ---

// Login checks the subject's secret and starts a new session.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.SubjectID) == "" || req.Secret == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "subjectId and secret required"})
		return
	}

	pair, err := h.Issuer.Login(c.Request.Context(), req.SubjectID, req.Secret, c.ClientIP())
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

// Refresh rotates a refresh token. Unlike the guarded endpoints it reports
// why the token was refused so clients can tell reuse from expiry.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refreshToken required"})
		return
	}

	pair, err := h.Rotator.Rotate(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

// Logout revokes the caller's session. Repeating it with the same token
// succeeds.
func (h Handlers) Logout(c *gin.Context) {
	tok := auth.BearerToken(c.GetHeader("Authorization"))
	if tok == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	if err := h.Revoker.Logout(c.Request.Context(), tok, c.ClientIP()); err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		writeAuthError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me echoes the authenticated identity.
func (h Handlers) Me(c *gin.Context) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subjectId":   id.SubjectID,
		"role":        id.Role,
		"permissions": id.Permissions,
		"sessionId":   id.SessionID,
		"expiresAt":   id.ExpiresAt.UTC(),
	})
}

// --- Admin ---

// AdminRevokeSession force-logs-out one session.
// RBAC: sessions:revoke.
func (h Handlers) AdminRevokeSession(c *gin.Context) {
	actor, _ := auth.SubjectID(c.Request.Context())
	sessionID := c.Param("session_id")
	if strings.TrimSpace(sessionID) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
		return
	}
	if err := h.Revoker.RevokeSession(c.Request.Context(), actor, sessionID); err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked", "sessionId": sessionID})
}

// AdminRevokeSubject invalidates every session a subject currently holds.
// RBAC: sessions:revoke.
func (h Handlers) AdminRevokeSubject(c *gin.Context) {
	actor, _ := auth.SubjectID(c.Request.Context())
	subjectID := c.Param("subject_id")
	if strings.TrimSpace(subjectID) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "subject_id required"})
		return
	}
	if err := h.Revoker.RevokeSubject(c.Request.Context(), actor, subjectID); err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked", "subjectId": subjectID})
}

// NotImplemented stands in for resource endpoints served elsewhere.
func NotImplemented(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "not implemented"})
}

func writeAuthError(c *gin.Context, err error) {
	code := auth.Code(err)
	switch code {
	case "unavailable":
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": code})
	case "forbidden":
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code})
	case "internal":
		logger.FromGin(c).Error("auth request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
	default:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
	}
}
