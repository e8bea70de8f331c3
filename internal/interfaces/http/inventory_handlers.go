package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plantops/workdesk/internal/application/service"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// InventoryHandlers serves the IT inventory endpoints
type InventoryHandlers struct {
	service service.InventoryService
}

// NewInventoryHandlers creates inventory handlers
func NewInventoryHandlers(svc service.InventoryService) *InventoryHandlers {
	return &InventoryHandlers{service: svc}
}

type createInventoryRequest struct {
	Name         string `json:"name" binding:"required"`
	SerialNumber string `json:"serial_number"`
	Category     string `json:"category"`
}

type assignRequest struct {
	AssigneeID    string `json:"assignee_id" binding:"required"`
	AssigneeEmail string `json:"assignee_email"`
	Version       int64  `json:"version"`
}

// Create handles POST /api/inventory
func (h *InventoryHandlers) Create(c *gin.Context) {
	actor, _ := currentActor(c)

	var req createInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	item, err := h.service.Create(c.Request.Context(), actor, service.CreateInventoryInput{
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		Category:     req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, item)
}

// Get handles GET /api/inventory/:id
func (h *InventoryHandlers) Get(c *gin.Context) {
	actor, _ := currentActor(c)

	item, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, item)
}

// List handles GET /api/inventory
func (h *InventoryHandlers) List(c *gin.Context) {
	actor, _ := currentActor(c)

	items, err := h.service.List(c.Request.Context(), actor, listFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, items)
}

// Counts handles GET /api/inventory/counts
func (h *InventoryHandlers) Counts(c *gin.Context) {
	counts, err := h.service.CountByStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, counts)
}

// Assign handles POST /api/inventory/:id/assign
func (h *InventoryHandlers) Assign(c *gin.Context) {
	actor, _ := currentActor(c)

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	assignee := entity.Actor{ID: req.AssigneeID, Email: req.AssigneeEmail}
	if err := h.service.Assign(c.Request.Context(), actor, c.Param("id"), assignee, req.Version); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

func (h *InventoryHandlers) transition(c *gin.Context, fire func(actor entity.Actor, id, comment string, version int64) error) {
	actor, _ := currentActor(c)

	var req versionedRequest
	_ = c.ShouldBindJSON(&req)

	if err := fire(actor, c.Param("id"), req.Comment, req.Version); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Release handles POST /api/inventory/:id/release
func (h *InventoryHandlers) Release(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, _ string, version int64) error {
		return h.service.Release(c.Request.Context(), actor, id, version)
	})
}

// SendToRepair handles POST /api/inventory/:id/send-repair
func (h *InventoryHandlers) SendToRepair(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, comment string, version int64) error {
		return h.service.SendToRepair(c.Request.Context(), actor, id, comment, version)
	})
}

// ReturnFromRepair handles POST /api/inventory/:id/return-repair
func (h *InventoryHandlers) ReturnFromRepair(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, _ string, version int64) error {
		return h.service.ReturnFromRepair(c.Request.Context(), actor, id, version)
	})
}

// Dispose handles POST /api/inventory/:id/dispose
func (h *InventoryHandlers) Dispose(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, comment string, version int64) error {
		return h.service.Dispose(c.Request.Context(), actor, id, comment, version)
	})
}

// AddNote handles POST /api/inventory/:id/notes
func (h *InventoryHandlers) AddNote(c *gin.Context) {
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
