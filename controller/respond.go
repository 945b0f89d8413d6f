// Package controller holds what the HTTP controllers share: their
// dependencies and the mapping from domain errors to responses.
package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"taskmate/middleware"
	"taskmate/model"
	"taskmate/services"
	"taskmate/session"
	"taskmate/store"
)

// Env is the set of dependencies handed to every controller.
type Env struct {
	Service        *services.AssignmentService
	Users          *services.UserService
	Assignments    store.Assignments
	Auth           gin.HandlerFunc
	Log            zerolog.Logger
	Location       *time.Location
	NoticeDuration time.Duration
	Now            func() time.Time
}

func (e *Env) Clock() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// RequireSession returns the caller's session or writes a 401.
func RequireSession(c *gin.Context) (session.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": session.ErrNoSession.Error()})
	}
	return sess, ok
}

// StatusFor maps a domain error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, model.ErrShareTargetNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyCollaborator):
		return http.StatusConflict
	case model.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrDocumentGone):
		return http.StatusNotFound
	case model.IsPersistenceError(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as a JSON error body. Persistence failures get a
// generic message.
func RespondError(c *gin.Context, err error) {
	code := StatusFor(err)
	msg := err.Error()
	switch code {
	case http.StatusServiceUnavailable:
		msg = "Could not reach the server, please try again"
	case http.StatusInternalServerError:
		msg = "Internal server error"
	}
	c.JSON(code, gin.H{"error": msg})
}
