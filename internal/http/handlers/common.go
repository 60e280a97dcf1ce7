package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	intconfig "buspass/internal/config"
	"buspass/internal/domain"
	"buspass/internal/gateway"
	"buspass/internal/http/middleware"
)

var (
	env intconfig.Env
	gw  gateway.Gateway
)

// Init wires handler-level configuration. Called once by the router.
func Init(e intconfig.Env, g gateway.Gateway) {
	env = e
	gw = g
}

// RespondError sends standard error payload with request_id included.
func RespondError(c *gin.Context, status int, message string, err error) {
	reqID := middleware.GetRequestID(c)
	payload := gin.H{
		"message":    message,
		"request_id": reqID,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.JSON(status, payload)
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil {
		RespondError(c, http.StatusBadRequest, "empty body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid payload", err)
		return false
	}
	return true
}

// sessionOrAbort pulls the verified session set by the auth middleware.
func sessionOrAbort(c *gin.Context) (domain.Session, bool) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "no session", nil)
	}
	return sess, ok
}

// paramID parses a positive int64 path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid "+name, err)
		return 0, false
	}
	return id, true
}
