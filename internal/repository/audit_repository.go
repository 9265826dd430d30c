package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/classroom-backend/internal/model"
)

// AuditRepository persists and reads the class audit trail.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// InsertBatch writes audit entries in one round trip.
func (r *AuditRepository) InsertBatch(ctx context.Context, entries []model.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO class_audit_logs
			     (class_id, action, changed_fields, old_values, new_values, performed_by, performed_at, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ClassID, e.Action, e.ChangedFields, jsonOrNil(e.OldValues), jsonOrNil(e.NewValues),
			e.PerformedBy, e.PerformedAt, jsonOrNil(e.Metadata),
		)
	}
	return classify(r.pool.SendBatch(ctx, batch).Close())
}

// ListByClass returns the newest audit entries of a class first.
func (r *AuditRepository) ListByClass(ctx context.Context, classID int, q model.AuditQuery) ([]model.AuditEntry, int, error) {
	var w whereBuilder
	w.add("class_id = ?", classID)
	if q.Action != "" {
		w.add("action = ?", q.Action)
	}
	if q.StartDate != nil {
		w.add("performed_at >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		// end_date is inclusive of the whole day
		w.add("performed_at < ?", q.EndDate.AddDate(0, 0, 1))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM class_audit_logs`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	where := w.sql()
	query := fmt.Sprintf(
		`SELECT id, class_id, action, COALESCE(changed_fields, '{}'), old_values, new_values,
		        performed_by, performed_at, metadata
		 FROM class_audit_logs%s
		 ORDER BY performed_at DESC, id DESC
		 LIMIT %s OFFSET %s`, where, w.next(q.Limit), w.next(q.Offset))

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	entries := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		var oldRaw, newRaw, metaRaw []byte
		if err := rows.Scan(&e.ID, &e.ClassID, &e.Action, &e.ChangedFields, &oldRaw, &newRaw,
			&e.PerformedBy, &e.PerformedAt, &metaRaw); err != nil {
			return nil, 0, classify(err)
		}
		if e.OldValues, err = decodeJSONMap(oldRaw); err != nil {
			return nil, 0, err
		}
		if e.NewValues, err = decodeJSONMap(newRaw); err != nil {
			return nil, 0, err
		}
		if e.Metadata, err = decodeJSONMap(metaRaw); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, classify(rows.Err())
}

func jsonOrNil(m map[string]any) []byte {
	if len(m) == 0 {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return raw
}

func decodeJSONMap(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode audit json: %w", err)
	}
	return m, nil
}
