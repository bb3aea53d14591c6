package mediator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/logging"
	"github.com/mikepea/spotter/pkg/spotter/metrics"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type outcome struct {
	status  int
	message string
}

// outcomes covers every apperr kind; mediator tests fail when a kind is missing.
var outcomes = map[apperr.Kind]outcome{
	apperr.KindInvalidCredential: {http.StatusUnauthorized, "Invalid or expired credential"},
	apperr.KindUnknownSubject:    {http.StatusUnauthorized, "Invalid or expired credential"},
	apperr.KindRoleNotPermitted:  {http.StatusForbidden, "Operation not permitted for this role"},
	apperr.KindNotOwner:          {http.StatusForbidden, "You can only act on your own records"},
	apperr.KindNotFound:          {http.StatusNotFound, "Resource not found"},
	apperr.KindFull:              {http.StatusConflict, "Event is full"},
	apperr.KindAlreadyJoined:     {http.StatusConflict, "Already joined this event"},
	apperr.KindForbidden:         {http.StatusForbidden, "You can only act on your own records"},
	apperr.KindCapacityUnderflow: {http.StatusConflict, "Participant count is inconsistent"},
	apperr.KindConflict:          {http.StatusConflict, "Resource already exists"},
	apperr.KindInvalidInput:      {http.StatusBadRequest, "Invalid request"},
	apperr.KindInternal:          {http.StatusInternalServerError, "Internal server error"},
}

// Status returns the HTTP status for an error kind.
func Status(kind apperr.Kind) int {
	if o, ok := outcomes[kind]; ok {
		return o.status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the fixed caller-facing message for an error kind.
func PublicMessage(kind apperr.Kind) string {
	if o, ok := outcomes[kind]; ok {
		return o.message
	}
	return outcomes[apperr.KindInternal].message
}

// Fail logs err and aborts the request with the outcome for its kind.
func Fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	logFailure(c, kind, err)
	metrics.RecordFailure(string(kind))
	c.AbortWithStatusJSON(Status(kind), ErrorResponse{
		Error: PublicMessage(kind),
		Kind:  string(kind),
	})
}

// logFailure keeps auth and access refusals apart in the logs and reserves
// ERROR for failures that point at a defect or an outage.
func logFailure(c *gin.Context, kind apperr.Kind, err error) {
	logger := logging.FromContext(c)
	attrs := []any{
		slog.String("kind", string(kind)),
		slog.String("class", string(kind.Class())),
		slog.String("cause", err.Error()),
	}
	ctx := c.Request.Context()

	switch kind.Class() {
	case apperr.ClassAuth:
		logger.WarnContext(ctx, "authentication failed", attrs...)
	case apperr.ClassAccess:
		logger.InfoContext(ctx, "access denied", attrs...)
	case apperr.ClassDomain:
		logger.InfoContext(ctx, "operation rejected", attrs...)
	case apperr.ClassInput:
		logger.DebugContext(ctx, "invalid request", attrs...)
	default:
		if errors.Is(err, context.Canceled) {
			logger.InfoContext(ctx, "request cancelled", attrs...)
			return
		}
		logger.ErrorContext(ctx, "request failed", attrs...)
	}
}
