package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/media-library-system/pkg/jwt"
	"github.com/media-library-system/pkg/redis"
)

// SessionStore is the session surface the middleware and handler need;
// satisfied by *redis.SessionStore and by test fakes.
type SessionStore interface {
	Save(ctx context.Context, userID string, session *redis.Session) error
	Get(ctx context.Context, userID string) (*redis.Session, error)
	Revoke(ctx context.Context, userID string) error
}

// AuthRequired rejects requests without a valid, unrevoked bearer token.
func AuthRequired(sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, username, ok := resolveIdentity(c, sessions)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}

		c.Set("user_id", userID)
		c.Set("username", username)
		c.Next()
	}
}

// AuthOptional resolves the caller's identity when a valid token is present
// and lets the request through anonymously otherwise.
func AuthOptional(sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, username, ok := resolveIdentity(c, sessions); ok {
			c.Set("user_id", userID)
			c.Set("username", username)
		}
		c.Next()
	}
}

func resolveIdentity(c *gin.Context, sessions SessionStore) (userID, username string, ok bool) {
	token := bearerToken(c)
	if token == "" {
		return "", "", false
	}

	claims, err := jwt.ValidateToken(token)
	if err != nil {
		return "", "", false
	}

	// The token must still be the user's live session; logout revokes it.
	session, err := sessions.Get(c.Request.Context(), claims.UserID)
	if err != nil || session.Token != token {
		return "", "", false
	}
	if time.Now().After(session.ExpiresAt) {
		return "", "", false
	}

	return claims.UserID, claims.Username, true
}

// bearerToken extracts the token from the Authorization header, or from the
// token query param for WebSocket upgrades.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

// UserID returns the authenticated caller's id, if any. Handlers behind
// AuthOptional use the second return to distinguish anonymous callers.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("user_id")
	if raw == "" {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}
