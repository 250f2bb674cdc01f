package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
)

func (r *Repository) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO users (full_name, phone, email)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, u.FullName, u.Phone, u.Email).Scan(&u.ID, &u.CreatedAt); err != nil {
			return err
		}
		if u.Address == nil {
			return nil
		}
		a := u.Address
		return tx.QueryRow(ctx, `
			INSERT INTO addresses (user_id, line1, line2, city, state, postal_code, is_default)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, u.ID, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.IsDefault).Scan(&a.ID)
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	var (
		u      model.User
		addrID *uuid.UUID
		a      model.Address
	)
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.full_name, u.phone, u.email, u.created_at,
			a.id, COALESCE(a.line1, ''), COALESCE(a.line2, ''), COALESCE(a.city, ''),
			COALESCE(a.state, ''), COALESCE(a.postal_code, '')
		FROM users u
		LEFT JOIN addresses a ON a.user_id = u.id AND a.is_default
		WHERE u.id = $1
	`, id).Scan(&u.ID, &u.FullName, &u.Phone, &u.Email, &u.CreatedAt,
		&addrID, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode)
	if err != nil {
		return model.User{}, notFound(err, "user", id)
	}
	if addrID != nil {
		a.ID = *addrID
		a.IsDefault = true
		u.Address = &a
	}
	return u, nil
}
