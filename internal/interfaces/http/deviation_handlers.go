package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantops/workdesk/internal/application/service"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// DeviationHandlers serves the deviation endpoints
type DeviationHandlers struct {
	service service.DeviationService
}

// NewDeviationHandlers creates deviation handlers
func NewDeviationHandlers(svc service.DeviationService) *DeviationHandlers {
	return &DeviationHandlers{service: svc}
}

type createDeviationRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Area        string `json:"area"`
	Category    string `json:"category"`
}

type updateDeviationRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Area        string `json:"area"`
	Category    string `json:"category"`
	Version     int64  `json:"version"`
}

type roleDecisionRequest struct {
	Role     string `json:"role" binding:"required"`
	Decision string `json:"decision" binding:"required"`
	Reason   string `json:"reason"`
}

type addActionRequest struct {
	Description   string    `json:"description" binding:"required"`
	ResponsibleID string    `json:"responsible_id" binding:"required"`
	DueDate       time.Time `json:"due_date"`
}

type actionStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

type noteRequest struct {
	Text string `json:"text" binding:"required"`
}

type bulkIDsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// Create handles POST /api/deviations
func (h *DeviationHandlers) Create(c *gin.Context) {
	actor, _ := currentActor(c)

	var req createDeviationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	dev, err := h.service.Create(c.Request.Context(), actor, service.CreateDeviationInput{
		Title:       req.Title,
		Description: req.Description,
		Area:        req.Area,
		Category:    req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, dev)
}

// Update handles PUT /api/deviations/:id
func (h *DeviationHandlers) Update(c *gin.Context) {
	actor, _ := currentActor(c)

	var req updateDeviationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	err := h.service.Update(c.Request.Context(), actor, c.Param("id"), service.UpdateDeviationInput{
		Title:       req.Title,
		Description: req.Description,
		Area:        req.Area,
		Category:    req.Category,
	}, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Get handles GET /api/deviations/:id
func (h *DeviationHandlers) Get(c *gin.Context) {
	actor, _ := currentActor(c)

	dev, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, dev)
}

// List handles GET /api/deviations
func (h *DeviationHandlers) List(c *gin.Context) {
	actor, _ := currentActor(c)

	devs, err := h.service.List(c.Request.Context(), actor, listFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, devs)
}

// Counts handles GET /api/deviations/counts
func (h *DeviationHandlers) Counts(c *gin.Context) {
	counts, err := h.service.CountByStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, counts)
}

// Transition handles the POST /api/deviations/:id/<transition> routes
func (h *DeviationHandlers) transition(c *gin.Context, fire func(actor entity.Actor, id, comment string, version int64) error) {
	actor, _ := currentActor(c)

	var req versionedRequest
	_ = c.ShouldBindJSON(&req)

	if err := fire(actor, c.Param("id"), req.Comment, req.Version); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Submit handles POST /api/deviations/:id/submit
func (h *DeviationHandlers) Submit(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, _ string, version int64) error {
		return h.service.Submit(c.Request.Context(), actor, id, version)
	})
}

// Approve handles POST /api/deviations/:id/approve
func (h *DeviationHandlers) Approve(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, comment string, version int64) error {
		return h.service.Approve(c.Request.Context(), actor, id, comment, version)
	})
}

// Reject handles POST /api/deviations/:id/reject
func (h *DeviationHandlers) Reject(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, comment string, version int64) error {
		return h.service.Reject(c.Request.Context(), actor, id, comment, version)
	})
}

// BeginProgress handles POST /api/deviations/:id/begin-progress
func (h *DeviationHandlers) BeginProgress(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, _ string, version int64) error {
		return h.service.BeginProgress(c.Request.Context(), actor, id, version)
	})
}

// Close handles POST /api/deviations/:id/close
func (h *DeviationHandlers) Close(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, comment string, version int64) error {
		return h.service.Close(c.Request.Context(), actor, id, comment, version)
	})
}

// Reopen handles POST /api/deviations/:id/reopen
func (h *DeviationHandlers) Reopen(c *gin.Context) {
	h.transition(c, func(actor entity.Actor, id, comment string, version int64) error {
		return h.service.Reopen(c.Request.Context(), actor, id, comment, version)
	})
}

// DecideRole handles POST /api/deviations/:id/role-approval
func (h *DeviationHandlers) DecideRole(c *gin.Context) {
	actor, _ := currentActor(c)

	var req roleDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	err := h.service.DecideRole(c.Request.Context(), actor, c.Param("id"),
		entity.Role(req.Role), req.Decision, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// AddAction handles POST /api/deviations/:id/actions
func (h *DeviationHandlers) AddAction(c *gin.Context) {
	actor, _ := currentActor(c)

	var req addActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	action, err := h.service.AddAction(c.Request.Context(), actor, c.Param("id"), service.AddActionInput{
		Description:   req.Description,
		ResponsibleID: req.ResponsibleID,
		DueDate:       req.DueDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, action)
}

// SetActionStatus handles POST /api/deviations/:id/actions/:actionID/status
func (h *DeviationHandlers) SetActionStatus(c *gin.Context) {
	actor, _ := currentActor(c)

	var req actionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	err := h.service.SetActionStatus(c.Request.Context(), actor, c.Param("id"),
		c.Param("actionID"), req.Status, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// AddNote handles POST /api/deviations/:id/notes
func (h *DeviationHandlers) AddNote(c *gin.Context) {
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

// BulkDelete handles POST /api/deviations/bulk/delete
func (h *DeviationHandlers) BulkDelete(c *gin.Context) {
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
