package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// InventoryRepository implements port.InventoryRepository
type InventoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *sql.DB, logger *zap.Logger) port.InventoryRepository {
	return &InventoryRepository{
		db:     db,
		logger: logger,
	}
}

const inventoryColumns = `
	id, internal_id, name, serial_number, category,
	owner_id, assignee_id, assignee_email,
	status, version, stamps, history, notes,
	edited_at, edited_by, created_at, updated_at
`

// Create inserts a new inventory item
func (r *InventoryRepository) Create(ctx context.Context, item *entity.InventoryItem) error {
	stamps, history, notes, err := inventoryDocs(item)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO inventory_items (` + inventoryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = getExecutor(ctx, r.db).ExecContext(ctx, query,
		item.ID, item.InternalID, item.Name, item.SerialNumber, item.Category,
		item.OwnerID, item.AssigneeID, item.AssigneeEmail,
		item.Status, item.Version, stamps, history, notes,
		item.EditedAt.UTC(), item.EditedBy, item.CreatedAt.UTC(), item.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create inventory item",
			zap.String("id", item.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create inventory item: %w", err)
	}
	return nil
}

// GetByID loads an item, nil when absent
func (r *InventoryRepository) GetByID(ctx context.Context, id string) (*entity.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = ?`
	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)

	item, err := scanInventory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return item, nil
}

// Save persists the full document with a version compare-and-swap
func (r *InventoryRepository) Save(ctx context.Context, item *entity.InventoryItem, expectedVersion int64) error {
	stamps, history, notes, err := inventoryDocs(item)
	if err != nil {
		return err
	}

	query := `
		UPDATE inventory_items SET
			name = ?, serial_number = ?, category = ?,
			assignee_id = ?, assignee_email = ?,
			status = ?, version = ?, stamps = ?, history = ?, notes = ?,
			edited_at = ?, edited_by = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		item.Name, item.SerialNumber, item.Category,
		item.AssigneeID, item.AssigneeEmail,
		item.Status, item.Version, stamps, history, notes,
		item.EditedAt.UTC(), item.EditedBy, item.EditedAt.UTC(),
		item.ID, expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save inventory item",
			zap.String("id", item.ID),
			zap.Error(err))
		return fmt.Errorf("failed to save inventory item: %w", err)
	}
	return casUpdate(result)
}

// List returns items matching the filter, newest first, capped
func (r *InventoryRepository) List(ctx context.Context, filter port.ListFilter) ([]*entity.InventoryItem, error) {
	where, args := listClauses(filter, "owner_id", "created_at",
		[]string{"internal_id", "name", "serial_number", "category", "assignee_email"})
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items` + where +
		` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.Cap())

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	defer rows.Close()

	var out []*entity.InventoryItem
	for rows.Next() {
		item, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// CountByStatus returns per-status counts
func (r *InventoryRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	return countByStatus(ctx, r.db, "inventory_items")
}

// Delete removes an item
func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}
	return nil
}

func inventoryDocs(item *entity.InventoryItem) (stamps, history, notes sql.NullString, err error) {
	if stamps, err = marshalDoc(item.Stamps); err != nil {
		return
	}
	if history, err = marshalDoc(item.History); err != nil {
		return
	}
	notes, err = marshalDoc(item.Notes)
	return
}

func scanInventory(row rowScanner) (*entity.InventoryItem, error) {
	var item entity.InventoryItem
	var stamps, history, notes sql.NullString

	err := row.Scan(
		&item.ID, &item.InternalID, &item.Name, &item.SerialNumber, &item.Category,
		&item.OwnerID, &item.AssigneeID, &item.AssigneeEmail,
		&item.Status, &item.Version, &stamps, &history, &notes,
		&item.EditedAt, &item.EditedBy, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Stamps = make(entity.Stamps)
	if err := unmarshalDoc(stamps, &item.Stamps); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(history, &item.History); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(notes, &item.Notes); err != nil {
		return nil, err
	}
	return &item, nil
}
