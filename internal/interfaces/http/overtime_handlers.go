package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/plantops/workdesk/internal/application/service"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// OvertimeHandlers serves the overtime-order endpoints
type OvertimeHandlers struct {
	service service.OvertimeService
}

// NewOvertimeHandlers creates overtime handlers
func NewOvertimeHandlers(svc service.OvertimeService) *OvertimeHandlers {
	return &OvertimeHandlers{service: svc}
}

type createOvertimeRequest struct {
	Department string          `json:"department" binding:"required"`
	Reason     string          `json:"reason"`
	StartsAt   time.Time       `json:"starts_at" binding:"required"`
	EndsAt     time.Time       `json:"ends_at" binding:"required"`
	Hours      decimal.Decimal `json:"hours"`
	HeadCount  int             `json:"head_count"`
}

// Create handles POST /api/overtime-orders
func (h *OvertimeHandlers) Create(c *gin.Context) {
	actor, _ := currentActor(c)

	var req createOvertimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	order, err := h.service.Create(c.Request.Context(), actor, service.CreateOvertimeInput{
		Department: req.Department,
		Reason:     req.Reason,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		Hours:      req.Hours,
		HeadCount:  req.HeadCount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, order)
}

// Get handles GET /api/overtime-orders/:id
func (h *OvertimeHandlers) Get(c *gin.Context) {
	actor, _ := currentActor(c)

	order, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// List handles GET /api/overtime-orders
func (h *OvertimeHandlers) List(c *gin.Context) {
	actor, _ := currentActor(c)

	orders, err := h.service.List(c.Request.Context(), actor, listFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, orders)
}

// Counts handles GET /api/overtime-orders/counts
func (h *OvertimeHandlers) Counts(c *gin.Context) {
	counts, err := h.service.CountByStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, counts)
}

func (h *OvertimeHandlers) transition(c *gin.Context, fire func(actor entity.Actor, id, comment string, version int64) error) {
	actor, _ := currentActor(c)

	var req versionedRequest
	_ = c.ShouldBindJSON(&req)

	if err := fire(actor, c.Param("id"), req.Comment, req.Version); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Confirm handles POST /api/overtime-orders/:id/confirm
func (h *OvertimeHandlers) Confirm(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, _ string, version int64) error {
		return h.service.Confirm(c.Request.Context(), actor, id, version)
	})
}

// Approve handles POST /api/overtime-orders/:id/approve
func (h *OvertimeHandlers) Approve(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, _ string, version int64) error {
		return h.service.Approve(c.Request.Context(), actor, id, version)
	})
}

// Cancel handles POST /api/overtime-orders/:id/cancel
func (h *OvertimeHandlers) Cancel(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, comment string, version int64) error {
		return h.service.Cancel(c.Request.Context(), actor, id, comment, version)
	})
}

// Complete handles POST /api/overtime-orders/:id/complete
func (h *OvertimeHandlers) Complete(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, _ string, version int64) error {
		return h.service.Complete(c.Request.Context(), actor, id, version)
	})
}

// MarkAccounted handles POST /api/overtime-orders/:id/mark-accounted
func (h *OvertimeHandlers) MarkAccounted(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, _ string, version int64) error {
		return h.service.MarkAccounted(c.Request.Context(), actor, id, version)
	})
}

// Reactivate handles POST /api/overtime-orders/:id/reactivate
func (h *OvertimeHandlers) Reactivate(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, _ string, version int64) error {
		return h.service.Reactivate(c.Request.Context(), actor, id, version)
	})
}

// AddNote handles POST /api/overtime-orders/:id/notes
func (h *OvertimeHandlers) AddNote(c *gin.Context) {
	actor, _ := currentActor(c)

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.service.AddNote(c.Request.Context(), actor, c.Param("id"), req.Text); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// BulkMarkAccounted handles POST /api/overtime-orders/bulk/account
func (h *OvertimeHandlers) BulkMarkAccounted(c *gin.Context) {
	actor, _ := currentActor(c)

	var req bulkIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	result, err := h.service.BulkMarkAccounted(c.Request.Context(), actor, req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// BulkDelete handles POST /api/overtime-orders/bulk/delete
func (h *OvertimeHandlers) BulkDelete(c *gin.Context) {
	actor, _ := currentActor(c)

	var req bulkIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	result, err := h.service.BulkDelete(c.Request.Context(), actor, req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}
