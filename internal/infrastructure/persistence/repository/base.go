package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/infrastructure/persistence/sqlite"
)

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// getExecutor returns the transaction on the context, or the database
func getExecutor(ctx context.Context, db *sql.DB) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return db
}

// marshalDoc serializes a sub-document column. Nil and empty values
// store as NULL.
func marshalDoc(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal document: %w", err)
	}
	s := string(data)
	if s == "null" || s == "[]" || s == "{}" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: s, Valid: true}, nil
}

// unmarshalDoc deserializes a sub-document column into target
func unmarshalDoc(src sql.NullString, target interface{}) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), target); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}

// listClauses renders the shared filter into WHERE clauses and args.
// searchCols are the columns matched by free-text search.
func listClauses(filter port.ListFilter, ownerCol, dateCol string, searchCols []string) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.OwnerID != "" {
		clauses = append(clauses, fmt.Sprintf("%s = ?", ownerCol))
		args = append(args, filter.OwnerID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := strings.Repeat("?,", len(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", placeholders[:len(placeholders)-1]))
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		var ors []string
		for _, col := range searchCols {
			ors = append(ors, fmt.Sprintf("%s LIKE ?", col))
			args = append(args, like)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if filter.From != nil {
		clauses = append(clauses, fmt.Sprintf("%s >= ?", dateCol))
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		clauses = append(clauses, fmt.Sprintf("%s < ?", dateCol))
		args = append(args, filter.To.UTC())
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// casUpdate checks the affected row count of a version-guarded UPDATE
func casUpdate(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return port.ErrVersionConflict
	}
	return nil
}

// countByStatus runs the shared per-status aggregation
func countByStatus(ctx context.Context, db *sql.DB, table string) (map[string]int, error) {
	rows, err := getExecutor(ctx, db).QueryContext(ctx,
		fmt.Sprintf("SELECT status, COUNT(*) FROM %s GROUP BY status", table))
	if err != nil {
		return nil, fmt.Errorf("count %s by status: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
