package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plantops/workdesk/internal/application/service"
)

// FailureHandlers serves the failure-report endpoints
type FailureHandlers struct {
	service service.FailureService
}

// NewFailureHandlers creates failure handlers
func NewFailureHandlers(svc service.FailureService) *FailureHandlers {
	return &FailureHandlers{service: svc}
}

type createFailureRequest struct {
	Line        string `json:"line" binding:"required"`
	Machine     string `json:"machine"`
	Description string `json:"description" binding:"required"`
}

type resolveRequest struct {
	Resolution string `json:"resolution" binding:"required"`
	Version    int64  `json:"version"`
}

// Create handles POST /api/failures
func (h *FailureHandlers) Create(c *gin.Context) {
	actor, _ := currentActor(c)

	var req createFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	report, err := h.service.Create(c.Request.Context(), actor, service.CreateFailureInput{
		Line:        req.Line,
		Machine:     req.Machine,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, report)
}

// Get handles GET /api/failures/:id
func (h *FailureHandlers) Get(c *gin.Context) {
	actor, _ := currentActor(c)

	report, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, report)
}

// List handles GET /api/failures
func (h *FailureHandlers) List(c *gin.Context) {
	actor, _ := currentActor(c)

	reports, err := h.service.List(c.Request.Context(), actor, listFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, reports)
}

// Counts handles GET /api/failures/counts
func (h *FailureHandlers) Counts(c *gin.Context) {
	counts, err := h.service.CountByStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, counts)
}

// Take handles POST /api/failures/:id/take
func (h *FailureHandlers) Take(c *gin.Context) {
	actor, _ := currentActor(c)

	var req versionedRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.service.Take(c.Request.Context(), actor, c.Param("id"), req.Version); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Resolve handles POST /api/failures/:id/resolve
func (h *FailureHandlers) Resolve(c *gin.Context) {
	actor, _ := currentActor(c)

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.service.Resolve(c.Request.Context(), actor, c.Param("id"), req.Resolution, req.Version); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Reopen handles POST /api/failures/:id/reopen
func (h *FailureHandlers) Reopen(c *gin.Context) {
	actor, _ := currentActor(c)

	var req versionedRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.service.Reopen(c.Request.Context(), actor, c.Param("id"), req.Comment, req.Version); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
