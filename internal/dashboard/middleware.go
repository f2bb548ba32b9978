package dashboard

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/agentdesk/internal/auth"
	"github.com/zulandar/agentdesk/internal/models"
	"gorm.io/gorm"
)

const (
	userKey  = "user"
	tokenKey = "token"
)

// bearerToken extracts the token from an "Authorization: Bearer" header.
// EventSource cannot set headers, so the token query parameter is accepted
// too.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

// requireAuth resolves the bearer session and stores the user on the context.
func requireAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		user, err := auth.Authenticate(c.Request.Context(), db, token)
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(userKey, user)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// currentUser returns the authenticated user. Only valid behind requireAuth.
func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userKey).(*models.User)
}
