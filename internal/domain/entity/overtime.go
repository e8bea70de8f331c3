package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status constants for OvertimeOrder
const (
	OvertimeForecast  = "forecast"
	OvertimePending   = "pending"
	OvertimeApproved  = "approved"
	OvertimeCanceled  = "canceled"
	OvertimeCompleted = "completed"
	OvertimeAccounted = "accounted"
)

// ForecastWindow is the lead time above which a new order starts as a
// forecast instead of a pending request.
const ForecastWindow = 7 * 24 * time.Hour

// OvertimeOrder is a scheduled overtime request advanced through the
// approval and accounting workflow.
type OvertimeOrder struct {
	ID             string          `json:"id"`
	InternalID     string          `json:"internal_id"`
	Department     string          `json:"department"`
	Reason         string          `json:"reason"`
	StartsAt       time.Time       `json:"starts_at"`
	EndsAt         time.Time       `json:"ends_at"`
	Hours          decimal.Decimal `json:"hours"`
	HeadCount      int             `json:"head_count"`
	RequestedBy    string          `json:"requested_by"`
	RequestedEmail string          `json:"requested_email"`

	Lifecycle

	Notes []Note `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the entity id
func (o *OvertimeOrder) GetID() string { return o.ID }

// GetFamily returns the entity family
func (o *OvertimeOrder) GetFamily() Family { return FamilyOvertime }

// GetOwnerID returns the requester's id
func (o *OvertimeOrder) GetOwnerID() string { return o.RequestedBy }

// InitialOvertimeStatus returns the status a new order starts in: orders
// beginning more than the forecast window in the future start as forecast.
func InitialOvertimeStatus(startsAt, now time.Time) string {
	if startsAt.Sub(now) > ForecastWindow {
		return OvertimeForecast
	}
	return OvertimePending
}
