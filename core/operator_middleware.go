package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// RequireOperator ensures the session has completed the operator login.
// There is only one account, so this is a boolean check rather than a
// role comparison.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionAny, _ := c.Get("session")
		sess, _ := sessionAny.(*sessions.Session)
		authenticated, _ := sess.Values["authenticated"].(bool)
		if !authenticated {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "operator login required")
			c.Abort()
			return
		}
		c.Next()
	}
}
