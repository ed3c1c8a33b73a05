package core

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// NewRouter constructs the Gin engine serving the operator status
// dashboard: a health check, a single-account login, and a read-only view
// of the coordinator's current scheduling state. It intentionally does
// not expose any submission or problem management surface — those stay
// the responsibility of whatever front end talks to Postgres directly.
func NewRouter(cfg Config, store *sessions.CookieStore, auth *OperatorAuth, coordinator *Coordinator, snapshots *SnapshotReader) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()

	r.Use(SessionMiddleware(cfg, store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}

			if err := auth.Authenticate(req.Username, req.Password); err != nil {
				respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
				return
			}

			sessionAny, _ := c.Get("session")
			session, _ := sessionAny.(*sessions.Session)
			session.Values = map[interface{}]interface{}{}
			session.Values["authenticated"] = true
			session.Values["username"] = req.Username
			applySessionOptions(cfg, session)
			if err := session.Save(c.Request, c.Writer); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set session")
				return
			}

			c.JSON(http.StatusOK, gin.H{"username": req.Username})
		})

		api.POST("/auth/logout", func(c *gin.Context) {
			sessionAny, _ := c.Get("session")
			session, _ := sessionAny.(*sessions.Session)
			if session == nil {
				respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
				return
			}
			session.Values = map[interface{}]interface{}{}
			applySessionOptions(cfg, session)
			session.Options.MaxAge = -1
			if err := session.Save(c.Request, c.Writer); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
				return
			}
			c.Status(http.StatusNoContent)
		})

		authorized := api.Group("")
		authorized.Use(RequireOperator())
		{
			authorized.GET("/status", func(c *gin.Context) {
				status := CollectStatus(coordinator.LatestSnapshot(), startedAt)
				c.JSON(http.StatusOK, status)
			})

			authorized.GET("/status/instances", func(c *gin.Context) {
				if snapshots == nil {
					c.JSON(http.StatusOK, gin.H{"instances": []CoordinatorSnapshot{}})
					return
				}
				instances, err := snapshots.Instances(c.Request.Context())
				if err != nil {
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to read instance snapshots")
					return
				}
				c.JSON(http.StatusOK, gin.H{"instances": instances})
			})
		}
	}

	return r
}
