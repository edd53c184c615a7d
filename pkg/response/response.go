package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autoparts-market/backend/pkg/apperr"
)

// Body is the standard API response envelope.
type Body struct {
	Body    interface{} `json:"body"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
}

func write(c *gin.Context, status int, body interface{}, message string) {
	c.JSON(status, Body{Body: body, Message: message, Status: status})
}

// OK sends a 200 JSON response with body.
func OK(c *gin.Context, body interface{}) {
	write(c, http.StatusOK, body, "success")
}

// OKMessage sends a 200 JSON response with body and a custom message.
func OKMessage(c *gin.Context, body interface{}, message string) {
	write(c, http.StatusOK, body, message)
}

// Created sends a 201 JSON response with body.
func Created(c *gin.Context, body interface{}) {
	write(c, http.StatusCreated, body, "success")
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, msg string) {
	write(c, http.StatusBadRequest, gin.H{}, msg)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, msg string) {
	write(c, http.StatusUnauthorized, gin.H{}, msg)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, msg string) {
	write(c, http.StatusForbidden, gin.H{}, msg)
}

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) {
	write(c, http.StatusNotFound, gin.H{}, msg)
}

// Internal sends 500.
func Internal(c *gin.Context, msg string) {
	write(c, http.StatusInternalServerError, gin.H{}, msg)
}

// InternalMessage is sent for 500s that carry no operation name.
const InternalMessage = "internal server error"

// Error maps an application error onto a status code using the apperr kinds.
// Unclassified errors become 500 whose message is only the leading "failed to <op>"
// segment; the cause stays in the server log.
func Error(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, apperr.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		Unauthorized(c, err.Error())
	default:
		Internal(c, operationMessage(err))
	}
}

func operationMessage(err error) string {
	msg := err.Error()
	if !strings.HasPrefix(msg, "failed to ") {
		return InternalMessage
	}
	if op, _, found := strings.Cut(msg, ":"); found {
		return op
	}
	return msg
}
