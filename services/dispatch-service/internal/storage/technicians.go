package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
)

const techColumns = `
	t.id, t.code, t.full_name, t.timezone, t.active, t.google_calendar_id, t.created_at,
	ARRAY(
		SELECT s.name FROM tech_skills ts JOIN skills s ON s.id = ts.skill_id
		WHERE ts.tech_id = t.id ORDER BY s.name
	)`

func scanTechnician(row pgx.Row) (model.Technician, error) {
	var t model.Technician
	err := row.Scan(&t.ID, &t.Code, &t.FullName, &t.Timezone, &t.Active, &t.CalendarID, &t.CreatedAt, &t.Skills)
	return t, err
}

func (r *Repository) ActiveTechniciansWithSkill(ctx context.Context, skill string) ([]model.Technician, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+techColumns+`
		FROM techs t
		JOIN tech_skills ts ON ts.tech_id = t.id
		JOIN skills s ON s.id = ts.skill_id
		WHERE t.active AND s.name = lower(trim($1))
		ORDER BY t.created_at ASC, t.code ASC
	`, skill)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Technician, error) {
		return scanTechnician(row)
	})
}

func (r *Repository) GetTechnician(ctx context.Context, id uuid.UUID) (model.Technician, error) {
	t, err := scanTechnician(r.pool.QueryRow(ctx, `SELECT `+techColumns+` FROM techs t WHERE t.id = $1`, id))
	if err != nil {
		return model.Technician{}, notFound(err, "technician", id)
	}
	return t, nil
}

func (r *Repository) CreateTechnician(ctx context.Context, t model.Technician) (model.Technician, error) {
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO techs (code, full_name, timezone, active, google_calendar_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`, t.Code, t.FullName, t.Timezone, t.Active, t.CalendarID).Scan(&t.ID, &t.CreatedAt); err != nil {
			return err
		}
		return upsertSkills(ctx, tx, t.ID, t.Skills)
	})
	if err != nil {
		if pgCode(err) == sqlstateUniqueViolation {
			return model.Technician{}, fmt.Errorf("technician code %q: %w", t.Code, model.ErrConflict)
		}
		return model.Technician{}, err
	}
	return r.GetTechnician(ctx, t.ID)
}

func (r *Repository) AddTechnicianSkills(ctx context.Context, techID uuid.UUID, skills []string) (model.Technician, error) {
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var one int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM techs WHERE id = $1 FOR UPDATE`, techID).Scan(&one); err != nil {
			return err
		}
		return upsertSkills(ctx, tx, techID, skills)
	})
	if err != nil {
		return model.Technician{}, notFound(err, "technician", techID)
	}
	return r.GetTechnician(ctx, techID)
}

// upsertSkills expects lowercased names.
func upsertSkills(ctx context.Context, tx pgx.Tx, techID uuid.UUID, skills []string) error {
	for _, name := range skills {
		if _, err := tx.Exec(ctx, `
			INSERT INTO skills (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING
		`, name); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO tech_skills (tech_id, skill_id)
			SELECT $1, id FROM skills WHERE name = $2
			ON CONFLICT DO NOTHING
		`, techID, name); err != nil {
			return err
		}
	}
	return nil
}
