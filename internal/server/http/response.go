package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/logging"
)

// envelope wraps every successful response body.
type envelope struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Data       any       `json:"data"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}

// errorBody is returned for every failed request.
type errorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

var now = time.Now

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		StatusCode: status,
		Timestamp:  now().UTC(),
	})
}

func statusFor(err error) int {
	switch common.KindOf(err) {
	case common.ErrorNotFound:
		return http.StatusNotFound
	case common.ErrorUnauthorized:
		return http.StatusUnauthorized
	case common.ErrorConflict:
		return http.StatusConflict
	case common.ErrorBadRequest:
		return http.StatusBadRequest
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(status int, err error) string {
	switch status {
	case http.StatusGatewayTimeout:
		return "request timed out, retry later"
	case http.StatusServiceUnavailable:
		return "request canceled, retry later"
	}
	return common.PublicMessage(err)
}

// abortWithError writes the error body for err and stops the handler chain.
// Internal errors are logged in full and reported with a generic message.
// Deadline and cancellation failures are retryable and only warned about.
func abortWithError(c *gin.Context, logger logging.Logger, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		logging.LogError(c.Request.Context(), logger, "request failed", err)
	case http.StatusGatewayTimeout, http.StatusServiceUnavailable:
		logger.Warn(c.Request.Context(), "request interrupted", "error", err.Error())
	}
	if errors.Is(err, common.ErrorUnauthorized) {
		c.Header("WWW-Authenticate", common.BearerScheme)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorBody{
		Status:  status,
		Error:   http.StatusText(status),
		Message: publicMessage(status, err),
		Path:    c.Request.URL.Path,
	})
}

var errInvalidBody = common.NewError(common.ErrorBadRequest, "invalid request body")

// bindJSON decodes the request body into dst, aborting with 400 on failure.
func bindJSON(c *gin.Context, logger logging.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, logger, errInvalidBody)
		return false
	}
	return true
}
