package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/internal/domain/apperror"
	"github.com/oksasatya/go-user-management/pkg/response"
	"github.com/oksasatya/go-user-management/pkg/validation"
)

const MsgValidationFailed = "Validation failed"

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindUnauthorized, apperror.KindInvalidToken, apperror.KindInvalidCredentials:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindDuplicateAccount:
		return http.StatusConflict
	case apperror.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the response envelope. Server-side failures are
// logged with the request id and their cause is not sent to the client.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
			"kind":       apperror.KindOf(err).String(),
		}).Error("request failed")
	}
	response.Send(c, response.Error[any](c, status, apperror.MessageOf(err), http.StatusText(status)))
}

func writeValidation(c *gin.Context, err error) {
	response.Send(c, response.Error[any](c, http.StatusBadRequest, MsgValidationFailed, validation.ToDetails(err)))
}
