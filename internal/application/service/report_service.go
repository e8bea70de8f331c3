package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// ReportService exports filtered registers as XLSX workbooks
type ReportService interface {
	DeviationRegister(ctx context.Context, actor entity.Actor, filter port.ListFilter, out io.Writer) error
	OvertimeMonthly(ctx context.Context, actor entity.Actor, month time.Time, out io.Writer) error
}

type reportServiceImpl struct {
	deviations port.DeviationRepository
	orders     port.OvertimeRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(
	deviations port.DeviationRepository,
	orders port.OvertimeRepository,
	logger *zap.Logger,
) ReportService {
	return &reportServiceImpl{
		deviations: deviations,
		orders:     orders,
		logger:     logger,
		now:        time.Now,
	}
}

// DeviationRegister writes the filtered deviation register as XLSX.
// Only elevated readers may pull the full register.
func (s *reportServiceImpl) DeviationRegister(ctx context.Context, actor entity.Actor, filter port.ListFilter, out io.Writer) error {
	if !s.mayExport(actor) {
		return ErrUnauthorized
	}

	devs, err := s.deviations.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list deviations: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Deviations"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"No.", "Title", "Area", "Category", "Status", "Owner", "Created", "Last Edited", "Open Actions"}
	for i, h := range headers {
		s.setCell(f, sheet, cellRef(i, 1), h)
	}

	now := s.now()
	for row, dev := range devs {
		r := row + 2
		s.setCell(f, sheet, cellRef(0, r), dev.InternalID)
		s.setCell(f, sheet, cellRef(1, r), dev.Title)
		s.setCell(f, sheet, cellRef(2, r), dev.Area)
		s.setCell(f, sheet, cellRef(3, r), dev.Category)
		s.setCell(f, sheet, cellRef(4, r), dev.Status)
		s.setCell(f, sheet, cellRef(5, r), dev.OwnerEmail)
		s.setCell(f, sheet, cellRef(6, r), dev.CreatedAt.Format("2006-01-02"))
		s.setCell(f, sheet, cellRef(7, r), dev.EditedAt.Format("2006-01-02"))
		s.setCell(f, sheet, cellRef(8, r), fmt.Sprintf("%d", openActions(dev, now)))
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("Deviation register exported",
		zap.Int("rows", len(devs)),
		zap.String("actor", actor.ID))
	return nil
}

// OvertimeMonthly writes the overtime report for one calendar month:
// every order starting in the month plus a total of accounted hours.
func (s *reportServiceImpl) OvertimeMonthly(ctx context.Context, actor entity.Actor, month time.Time, out io.Writer) error {
	if !s.mayExport(actor) {
		return ErrUnauthorized
	}

	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	orders, err := s.orders.List(ctx, port.ListFilter{From: &from, To: &to})
	if err != nil {
		return fmt.Errorf("list overtime orders: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := from.Format("2006-01")
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"No.", "Department", "Start", "End", "Hours", "Head Count", "Status", "Requested By"}
	for i, h := range headers {
		s.setCell(f, sheet, cellRef(i, 1), h)
	}

	total := decimal.Zero
	row := 2
	for _, order := range orders {
		s.setCell(f, sheet, cellRef(0, row), order.InternalID)
		s.setCell(f, sheet, cellRef(1, row), order.Department)
		s.setCell(f, sheet, cellRef(2, row), order.StartsAt.Format("2006-01-02 15:04"))
		s.setCell(f, sheet, cellRef(3, row), order.EndsAt.Format("2006-01-02 15:04"))
		s.setCell(f, sheet, cellRef(4, row), order.Hours.StringFixed(2))
		s.setCell(f, sheet, cellRef(5, row), fmt.Sprintf("%d", order.HeadCount))
		s.setCell(f, sheet, cellRef(6, row), order.Status)
		s.setCell(f, sheet, cellRef(7, row), order.RequestedEmail)
		if order.Status == entity.OvertimeAccounted {
			total = total.Add(order.Hours)
		}
		row++
	}

	s.setCell(f, sheet, cellRef(3, row+1), "Accounted hours")
	s.setCell(f, sheet, cellRef(4, row+1), total.StringFixed(2))

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("Overtime report exported",
		zap.String("month", sheet),
		zap.Int("rows", len(orders)))
	return nil
}

func (s *reportServiceImpl) mayExport(actor entity.Actor) bool {
	return actor.IsAdmin() ||
		actor.HasRole(entity.RolePlantManager) ||
		actor.HasRole(entity.RoleHR) ||
		actor.HasRole(entity.RoleQualityManager)
}

func (s *reportServiceImpl) setCell(f *excelize.File, sheet, cell string, value string) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		s.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

// openActions counts a deviation's actions still open, in progress or
// overdue at the given instant.
func openActions(dev *entity.Deviation, now time.Time) int {
	n := 0
	for i := range dev.Actions {
		switch dev.Actions[i].DisplayStatus(now) {
		case entity.ActionOpen, entity.ActionInProgress, entity.ActionOverdue:
			n++
		}
	}
	return n
}

// cellRef converts zero-based column and one-based row to an A1 ref
func cellRef(col, row int) string {
	name, _ := excelize.ColumnNumberToName(col + 1)
	return fmt.Sprintf("%s%d", name, row)
}
