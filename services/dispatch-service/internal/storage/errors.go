package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
)

const (
	sqlstateExclusionViolation  = "23P01"
	sqlstateForeignKeyViolation = "23503"
	sqlstateUniqueViolation     = "23505"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsConflict reports whether err came from the tech_blocks exclusion constraint.
func IsConflict(err error) bool {
	return pgCode(err) == sqlstateExclusionViolation
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// notFound maps pgx.ErrNoRows and foreign key violations to model.ErrNotFound.
func notFound(err error, kind string, ref any) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || pgCode(err) == sqlstateForeignKeyViolation {
		return model.NotFoundError(kind, ref)
	}
	return err
}

// blockErr translates a write that touched tech_blocks.
func blockErr(err error, conflict *model.ConflictError, kind string, ref any) error {
	if err == nil {
		return nil
	}
	if IsConflict(err) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			conflict.Detail = pgErr.Detail
		}
		return conflict
	}
	if pgCode(err) == sqlstateUniqueViolation {
		return fmt.Errorf("%s %v: %w", kind, ref, model.ErrConflict)
	}
	return notFound(err, kind, ref)
}
