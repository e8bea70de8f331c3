package event

// Type identifies the type of domain event
type Type string

const (
	TypeDeviationSubmitted Type = "deviation.submitted"
	TypeDeviationApproved  Type = "deviation.approved"
	TypeDeviationRejected  Type = "deviation.rejected"
	TypeDeviationClosed    Type = "deviation.closed"
	TypeOvertimeApproved   Type = "overtime.approved"
	TypeOvertimeCanceled   Type = "overtime.canceled"
	TypeOvertimeAccounted  Type = "overtime.accounted"
	TypeStatusChanged      Type = "entity.status_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeDeviationSubmitted,
		TypeDeviationApproved,
		TypeDeviationRejected,
		TypeDeviationClosed,
		TypeOvertimeApproved,
		TypeOvertimeCanceled,
		TypeOvertimeAccounted,
		TypeStatusChanged:
		return true
	default:
		return false
	}
}
