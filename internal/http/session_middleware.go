package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/models"
)

// Context keys set by SessionMiddleware.
const (
	ContextUserKey   = "user"
	ContextUserIDKey = "userID"
	ContextTokenKey  = "sessionToken"
)

// SessionResolver maps a bearer token to its account. A nil user means the token is not valid.
type SessionResolver interface {
	CurrentSession(ctx context.Context, token string) (*models.User, error)
}

// SessionMiddleware requires a valid session token from the Authorization header or,
// for EventSource clients that cannot set headers, the token query parameter.
func SessionMiddleware(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		token, ok := TokenFromRequest(c)
		if !ok {
			RespondError(c, apperr.Unauthorized("missing authorization header"))
			c.Abort()
			return
		}
		user, errSession := resolver.CurrentSession(c.Request.Context(), token)
		if errSession != nil {
			log.WithError(errSession).Warn("http: resolve session")
			RespondError(c, errSession)
			c.Abort()
			return
		}
		if user == nil {
			RespondError(c, apperr.Unauthorized("invalid token"))
			c.Abort()
			return
		}
		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// TokenFromRequest extracts the session token.
func TokenFromRequest(c *gin.Context) (string, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		token := strings.TrimSpace(parts[1])
		return token, token != ""
	}
	token := strings.TrimSpace(c.Query("token"))
	return token, token != ""
}

// CurrentUser returns the account stored by SessionMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

// CurrentToken returns the token stored by SessionMiddleware.
func CurrentToken(c *gin.Context) string {
	return c.GetString(ContextTokenKey)
}

// RequireStaff rejects accounts that may not use the back office.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			RespondError(c, apperr.Unauthorized("sign in required"))
			c.Abort()
			return
		}
		if !user.Role.IsStaff() {
			RespondError(c, apperr.Forbidden("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
