package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/plumbdesk/dispatch/libs/db"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/availability"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/outbox"
)

// Repository is the Postgres store. Holds and non-canceled appointments each
// own one tech_blocks row; its exclusion constraint rejects overlaps.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) ListShifts(ctx context.Context, techIDs []uuid.UUID, window availability.Interval) ([]model.Shift, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tech_id, start_ts, end_ts
		FROM tech_shifts
		WHERE tech_id = ANY($1)
			AND start_ts < $3
			AND end_ts > $2
		ORDER BY start_ts ASC
	`, techIDs, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Shift, error) {
		var s model.Shift
		err := row.Scan(&s.ID, &s.TechnicianID, &s.Start, &s.End)
		s.Start, s.End = s.Start.UTC(), s.End.UTC()
		return s, err
	})
}

func (r *Repository) ListBusy(ctx context.Context, techIDs []uuid.UUID, window availability.Interval, now time.Time) (map[uuid.UUID][]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tech_id, start_ts, end_ts
		FROM appointments
		WHERE tech_id = ANY($1)
			AND status <> 'canceled'
			AND start_ts < $3
			AND end_ts > $2
		UNION ALL
		SELECT tech_id, start_ts, end_ts
		FROM holds
		WHERE tech_id = ANY($1)
			AND expires_at > $4
			AND start_ts < $3
			AND end_ts > $2
	`, techIDs, window.Start, window.End, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	busy := make(map[uuid.UUID][]availability.Interval)
	for rows.Next() {
		var techID uuid.UUID
		var iv availability.Interval
		if err := rows.Scan(&techID, &iv.Start, &iv.End); err != nil {
			return nil, err
		}
		busy[techID] = append(busy[techID], availability.Interval{Start: iv.Start.UTC(), End: iv.End.UTC()})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return busy, nil
}

// purgeExpiredHolds drops dead holds of techID overlapping [start, end) so
// their blocks stop occupying the exclusion constraint.
func purgeExpiredHolds(ctx context.Context, tx pgx.Tx, techID uuid.UUID, start, end, now time.Time) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM holds
		WHERE tech_id = $1
			AND expires_at <= $4
			AND start_ts < $3
			AND end_ts > $2
	`, techID, start, end, now)
	return err
}

func insertBlock(ctx context.Context, tx pgx.Tx, techID uuid.UUID, start, end time.Time, holdID, appointmentID *uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO tech_blocks (tech_id, period, hold_id, appointment_id)
		VALUES ($1, tstzrange($2, $3, '[)'), $4, $5)
	`, techID, start, end, holdID, appointmentID)
	return err
}

func (r *Repository) PublishShifts(ctx context.Context, techID uuid.UUID, shifts []availability.Interval, clearOverlaps bool) (int, error) {
	var inserted int
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		for _, iv := range shifts {
			if clearOverlaps {
				if _, err := tx.Exec(ctx, `
					DELETE FROM tech_shifts
					WHERE tech_id = $1 AND start_ts < $3 AND end_ts > $2
				`, techID, iv.Start, iv.End); err != nil {
					return err
				}
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO tech_shifts (tech_id, start_ts, end_ts)
				VALUES ($1, $2, $3)
			`, techID, iv.Start, iv.End); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, notFound(err, "technician", techID)
	}
	return inserted, nil
}
