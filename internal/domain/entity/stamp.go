package entity

import "time"

// Stamp records who performed a transition and when
type Stamp struct {
	At time.Time `json:"at"`
	By string    `json:"by"`
}

// Stamps maps a reached status to its transition stamp.
// A status never reached has no entry.
type Stamps map[string]Stamp

// Set records the stamp for a status
func (s Stamps) Set(status string, at time.Time, by string) {
	s[status] = Stamp{At: at, By: by}
}

// Has returns true if the status has been stamped
func (s Stamps) Has(status string) bool {
	_, ok := s[status]
	return ok
}

// Get returns the stamp for a status, if present
func (s Stamps) Get(status string) (Stamp, bool) {
	st, ok := s[status]
	return st, ok
}

// StatusChange is one entry of an entity's append-only audit history
type StatusChange struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Trigger   string    `json:"trigger"`
	Comment   string    `json:"comment,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy string    `json:"changed_by"`
}

// Note is a free-text remark attached to an entity
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
}
