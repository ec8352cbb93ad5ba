package api

import (
	"errors"
	"net/http"

	"comanda/internal/auth"
	"comanda/internal/menu"
	"comanda/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusFor maps service errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, orders.ErrValidation), errors.Is(err, menu.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, menu.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, orders.ErrTotalMismatch):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": message}. Internal errors are logged and
// replaced by a generic message.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"route":      c.FullPath(),
		}).WithError(err).Error("request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
