package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Repository is the persistence contract for emergency-call records.
//
// It MUST be append-only.
// No Update/Delete methods are provided.
type Repository interface {
	Insert(ctx context.Context, rec EmergencyCallRecord) error

	// CountRecent counts records created at or after since whose ip equals ip
	// or whose to_number equals toNumber. An empty ip matches by number only.
	CountRecent(ctx context.Context, ip, toNumber string, since time.Time) (int, error)

	// List returns one page, newest first, plus the total matching count.
	List(ctx context.Context, f ListFilter) ([]EmergencyCallRecord, int, error)

	// ListSince returns records in [since, until], oldest first, capped at limit.
	ListSince(ctx context.Context, since, until time.Time, limit int) ([]EmergencyCallRecord, error)
}

// PostgresRepo stores records in the emergency_calls table.
// The *sql.DB must be opened with the service role credential.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const recordColumns = `id, to_number, call_id, source, coords, ip, user_id, user_agent, created_at`

func (r *PostgresRepo) Insert(ctx context.Context, rec EmergencyCallRecord) error {
	const q = `
INSERT INTO emergency_calls (
  id, to_number, call_id, source, coords, ip, user_id, user_agent, created_at
) VALUES (
  $1,$2,$3,$4,$5::jsonb,$6,$7,$8,$9
)
`
	var coords any
	if rec.HasCoords() {
		coords = string(rec.Coords)
	}
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.ToNumber,
		rec.CallID,
		rec.Source,
		coords,
		rec.IP,
		rec.UserID,
		rec.UserAgent,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert emergency call: %w", err)
	}
	return nil
}

func (r *PostgresRepo) CountRecent(ctx context.Context, ip, toNumber string, since time.Time) (int, error) {
	const q = `
SELECT count(*)
FROM emergency_calls
WHERE created_at >= $1
  AND (to_number = $2 OR ($3 <> '' AND ip = $3))
`
	var n int
	if err := r.db.QueryRowContext(ctx, q, since, toNumber, ip).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recent emergency calls: %w", err)
	}
	return n, nil
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]EmergencyCallRecord, int, error) {
	where, args := listWhere(f)

	var total int
	countQ := `SELECT count(*) FROM emergency_calls` + where
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count emergency calls: %w", err)
	}

	pageArgs := append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`SELECT %s FROM emergency_calls%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		recordColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, q, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list emergency calls: %w", err)
	}
	defer rows.Close()

	out, err := scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PostgresRepo) ListSince(ctx context.Context, since, until time.Time, limit int) ([]EmergencyCallRecord, error) {
	q := `SELECT ` + recordColumns + `
FROM emergency_calls
WHERE created_at >= $1 AND created_at <= $2
ORDER BY created_at ASC
LIMIT $3
`
	rows, err := r.db.QueryContext(ctx, q, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("list emergency calls since: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func listWhere(f ListFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ToNumber != "" {
		add(`to_number ILIKE '%%' || $%d || '%%'`, f.ToNumber)
	}
	if f.Source != "" {
		add(`source ILIKE '%%' || $%d || '%%'`, f.Source)
	}
	if f.From != nil {
		add(`created_at >= $%d`, *f.From)
	}
	if f.To != nil {
		add(`created_at <= $%d`, *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanRecords(rows *sql.Rows) ([]EmergencyCallRecord, error) {
	var out []EmergencyCallRecord
	for rows.Next() {
		var rec EmergencyCallRecord
		var coords []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.ToNumber,
			&rec.CallID,
			&rec.Source,
			&coords,
			&rec.IP,
			&rec.UserID,
			&rec.UserAgent,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan emergency call: %w", err)
		}
		if len(coords) > 0 {
			rec.Coords = append([]byte(nil), coords...)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emergency calls: %w", err)
	}
	return out, nil
}
