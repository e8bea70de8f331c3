// Package http provides the HTTP adapter for the application layer.
// Handlers translate requests into service calls and service errors
// into the shared response envelope; no workflow rules live here.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/application/service"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// actorKey is the gin context key the auth middleware stores the
// caller under.
const actorKey = "actor"

// currentActor returns the authenticated caller placed on the context
// by the auth middleware.
func currentActor(c *gin.Context) (entity.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return entity.Actor{}, false
	}
	actor, ok := v.(entity.Actor)
	return actor, ok
}

// respondError maps service errors onto HTTP statuses and the error
// vocabulary the frontend matches on.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "not found"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "unauthorized"})
	case errors.Is(err, service.ErrCannotCancel):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "cannot cancel"})
	case errors.Is(err, service.ErrCannotEdit):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "cannot edit - invalid status"})
	case errors.Is(err, service.ErrVacancyRequired):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "vacancy_required"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "invalid status"})
	case errors.Is(err, port.ErrVersionConflict):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "version conflict"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// versionedRequest carries the optimistic-concurrency version the
// caller loaded before acting. Zero skips the pre-check; the executor
// still compares-and-swaps on save.
type versionedRequest struct {
	Version int64  `json:"version"`
	Comment string `json:"comment"`
}

// filterDateLayout is the wire format for the from/to range parameters
const filterDateLayout = "2006-01-02"

// listFilterFromQuery binds the shared list-view query parameters.
// The to date is inclusive: the filter's exclusive upper bound is the
// start of the following day.
func listFilterFromQuery(c *gin.Context) port.ListFilter {
	var q struct {
		Search   string   `form:"search"`
		Statuses []string `form:"status"`
		Limit    int      `form:"limit"`
		From     string   `form:"from"`
		To       string   `form:"to"`
	}
	_ = c.ShouldBindQuery(&q)

	filter := port.ListFilter{
		Search:   q.Search,
		Statuses: q.Statuses,
		Limit:    q.Limit,
	}
	if t, err := time.Parse(filterDateLayout, q.From); err == nil {
		filter.From = &t
	}
	if t, err := time.Parse(filterDateLayout, q.To); err == nil {
		end := t.Add(24 * time.Hour)
		filter.To = &end
	}
	return filter
}
