package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
)

func (r *Repository) InsertHold(ctx context.Context, h model.Hold, now time.Time) (model.Hold, error) {
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := purgeExpiredHolds(ctx, tx, h.TechnicianID, h.Start, h.End, now); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO holds (tech_id, user_id, start_ts, end_ts, expires_at, note)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`, h.TechnicianID, h.UserID, h.Start, h.End, h.ExpiresAt, h.Note).Scan(&h.ID, &h.CreatedAt); err != nil {
			return err
		}
		return insertBlock(ctx, tx, h.TechnicianID, h.Start, h.End, &h.ID, nil)
	})
	if err != nil {
		conflict := &model.ConflictError{TechnicianID: h.TechnicianID, Start: h.Start, End: h.End}
		return model.Hold{}, blockErr(err, conflict, "hold", h.TechnicianID)
	}
	return h, nil
}

// DeleteExpiredHolds removes up to limit holds that expired at or before now.
// Their tech_blocks rows go with them through ON DELETE CASCADE.
func (r *Repository) DeleteExpiredHolds(ctx context.Context, now time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM holds
		WHERE id IN (
			SELECT id FROM holds
			WHERE expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
	`, now, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
