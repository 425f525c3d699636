package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	h.logger.Info(c.Request.Context(), "login attempt", "identifier", req.Username)

	res, err := h.deps.Auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, res.Message, toAuthResponse(res))
}

func (h *handlers) refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	res, err := h.deps.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, res.Message, toAuthResponse(res))
}

func (h *handlers) logout(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	h.logger.Info(c.Request.Context(), "logout", "subject", p.Subject)

	if err := h.deps.Auth.Logout(c.Request.Context(), p.Subject); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Logout successful", nil)
}

func (h *handlers) registerUser(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	u, err := h.deps.Users.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "User registered successfully.", toUserResponse(u))
}

func (h *handlers) me(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	u, err := h.deps.Users.Me(c.Request.Context(), p.UserID)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "User retrieved successfully.", toUserResponse(u))
}
