package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zekret/zekret/internal/logging"
)

type handlers struct {
	deps   Deps
	logger logging.Logger
}

func (h *handlers) register(r gin.IRouter) {
	r.GET("/health/live", h.live)
	r.GET("/health/ready", h.ready)
	r.GET("/metrics", gin.WrapH(h.deps.Metrics.Handler()))

	v1 := r.Group("/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/login", h.login)
	authGroup.POST("/refresh", h.refresh)
	authGroup.POST("/logout", h.logout)

	users := v1.Group("/users")
	users.POST("/register", h.registerUser)
	users.GET("/me", h.me)

	ns := v1.Group("/namespaces")
	ns.GET("", h.listNamespaces)
	ns.POST("", h.createNamespace)
	ns.GET("/:zrn", h.getNamespace)
	ns.PUT("/:zrn", h.updateNamespace)
	ns.DELETE("/:zrn", h.deleteNamespace)

	creds := v1.Group("/credentials")
	creds.POST("", h.createCredential)
	creds.GET("/namespace/:namespaceZrn", h.listCredentials)
	creds.GET("/:zrn", h.getCredential)
	creds.PUT("/:zrn", h.updateCredential)
	creds.DELETE("/:zrn", h.deleteCredential)

	types := v1.Group("/credential-types")
	types.GET("", h.listCredentialTypes)
	types.GET("/:zrn", h.getCredentialType)
}

func (h *handlers) live(c *gin.Context) {
	respond(c, http.StatusOK, "alive", nil)
}

func (h *handlers) ready(c *gin.Context) {
	if h.deps.DB != nil {
		if err := h.deps.DB.PingContext(c.Request.Context()); err != nil {
			h.logger.Warn(c.Request.Context(), "readiness check failed", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{
				Status:  http.StatusServiceUnavailable,
				Error:   http.StatusText(http.StatusServiceUnavailable),
				Message: "database unavailable",
				Path:    c.Request.URL.Path,
			})
			return
		}
	}
	respond(c, http.StatusOK, "ready", nil)
}
