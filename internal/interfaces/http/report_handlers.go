package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantops/workdesk/internal/application/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandlers streams XLSX exports
type ReportHandlers struct {
	service service.ReportService
}

// NewReportHandlers creates report handlers
func NewReportHandlers(svc service.ReportService) *ReportHandlers {
	return &ReportHandlers{service: svc}
}

// DeviationRegister handles GET /api/reports/deviations.xlsx
func (h *ReportHandlers) DeviationRegister(c *gin.Context) {
	actor, _ := currentActor(c)

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", `attachment; filename="deviations.xlsx"`)

	err := h.service.DeviationRegister(c.Request.Context(), actor, listFilterFromQuery(c), c.Writer)
	if err != nil {
		// headers may already be out; report what we can
		respondError(c, err)
	}
}

// OvertimeMonthly handles GET /api/reports/overtime.xlsx?month=2026-03
func (h *ReportHandlers) OvertimeMonthly(c *gin.Context) {
	actor, _ := currentActor(c)

	month, err := time.Parse("2006-01", c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "month must be YYYY-MM"})
		return
	}

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="overtime-%s.xlsx"`, month.Format("2006-01")))

	if err := h.service.OvertimeMonthly(c.Request.Context(), actor, month, c.Writer); err != nil {
		respondError(c, err)
	}
}
