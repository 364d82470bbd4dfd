package handler

import (
	"net/http"

	"factoryerp/pkg/apperror"
	"factoryerp/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusForError maps the service error taxonomy onto HTTP statuses so
// callers can tell bad input (400) from "not allowed right now" (422),
// missing records (404) and concurrent-write clashes (409).
func statusForError(err error) int {
	kind, ok := apperror.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, response.Error(status, msg))
}
