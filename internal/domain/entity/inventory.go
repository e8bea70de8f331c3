package entity

import "time"

// Status constants for InventoryItem
const (
	InventoryInUse     = "in use"
	InventoryInStorage = "in storage"
	InventoryInRepair  = "in repair"
	InventoryDisposed  = "disposed"
)

// InventoryItem is an IT asset tracked through assignment, repair and
// disposal.
type InventoryItem struct {
	ID            string `json:"id"`
	InternalID    string `json:"internal_id"`
	Name          string `json:"name"`
	SerialNumber  string `json:"serial_number"`
	Category      string `json:"category"`
	OwnerID       string `json:"owner_id"`
	AssigneeID    string `json:"assignee_id,omitempty"`
	AssigneeEmail string `json:"assignee_email,omitempty"`

	Lifecycle

	Notes []Note `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the entity id
func (i *InventoryItem) GetID() string { return i.ID }

// GetFamily returns the entity family
func (i *InventoryItem) GetFamily() Family { return FamilyInventory }

// GetOwnerID returns the creator's id
func (i *InventoryItem) GetOwnerID() string { return i.OwnerID }
