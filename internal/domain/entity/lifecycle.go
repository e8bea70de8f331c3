package entity

import "time"

// Lifecycle is the workflow envelope embedded in every trackable entity:
// current status, optimistic-concurrency version, per-status stamps and
// the append-only status history.
type Lifecycle struct {
	Status   string         `json:"status"`
	Version  int64          `json:"version"`
	Stamps   Stamps         `json:"stamps"`
	History  []StatusChange `json:"history"`
	EditedAt time.Time      `json:"edited_at"`
	EditedBy string         `json:"edited_by"`
}

// NewLifecycle initializes the envelope in the given status. The initial
// status is stamped unless silent is true (e.g. forecast overtime orders
// carry no pending stamp until confirmed).
func NewLifecycle(status string, at time.Time, by string, silent bool) Lifecycle {
	lc := Lifecycle{
		Status:   status,
		Version:  1,
		Stamps:   make(Stamps),
		EditedAt: at,
		EditedBy: by,
	}
	if !silent {
		lc.Stamps.Set(status, at, by)
	}
	return lc
}

// GetStatus returns the current status
func (l *Lifecycle) GetStatus() string { return l.Status }

// SetStatus sets the current status
func (l *Lifecycle) SetStatus(status string) { l.Status = status }

// GetVersion returns the current version
func (l *Lifecycle) GetVersion() int64 { return l.Version }

// BumpVersion increments the version counter
func (l *Lifecycle) BumpVersion() { l.Version++ }

// StampStatus records the transition stamp for a reached status
func (l *Lifecycle) StampStatus(status string, at time.Time, by string) {
	if l.Stamps == nil {
		l.Stamps = make(Stamps)
	}
	l.Stamps.Set(status, at, by)
}

// Touch updates the generic edited stamp
func (l *Lifecycle) Touch(at time.Time, by string) {
	l.EditedAt = at
	l.EditedBy = by
}

// AppendHistory appends one audit entry. History is append-only.
func (l *Lifecycle) AppendHistory(change StatusChange) {
	l.History = append(l.History, change)
}
