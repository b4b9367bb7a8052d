// Package http holds the gin middleware and helpers shared by the front and admin APIs.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
)

// RespondError writes err as {"error": message, "kind": kind} with the status of its kind.
func RespondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	kind := string(apperr.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("http: request failed")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": apperr.Message(err), "kind": kind})
}

// BadRequest reports a malformed body.
func BadRequest(c *gin.Context, message string) {
	RespondError(c, apperr.Validation("%s", message))
}
