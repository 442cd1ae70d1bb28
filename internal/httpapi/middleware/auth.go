package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gopherchat/gopherchat/internal/auth"
	"github.com/gopherchat/gopherchat/internal/common"
)

const UserIDKey = "user_id"

// AuthRequired resolves the authenticated principal id into the gin context.
// Requests that fail here never reach the gateway or the stores.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			common.Fail(c, http.StatusUnauthorized, 40101, "missing or invalid token")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			common.Fail(c, http.StatusUnauthorized, 40101, "missing or invalid token")
			c.Abort()
			return
		}

		uid, err := auth.ParseUserID(parts[1], secret)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				common.Fail(c, http.StatusUnauthorized, 40102, "token has expired")
			} else {
				common.Fail(c, http.StatusUnprocessableEntity, 42201, "invalid token")
			}
			c.Abort()
			return
		}

		c.Set(UserIDKey, uid)
		c.Next()
	}
}
