package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/outbox"
)

const appointmentColumns = `
	id, appointment_no, user_id, tech_id, start_ts, end_ts, priority, status, request_text,
	phone_snapshot, address_line1, address_line2, city, state, postal_code,
	google_event_id, hangout_link, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.Number,
		&a.UserID,
		&a.TechnicianID,
		&a.Start,
		&a.End,
		&a.Priority,
		&a.Status,
		&a.RequestText,
		&a.PhoneSnapshot,
		&a.AddressLine1,
		&a.AddressLine2,
		&a.City,
		&a.State,
		&a.PostalCode,
		&a.CalendarEventID,
		&a.MeetingLink,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	a.Start, a.End = a.Start.UTC(), a.End.UTC()
	return a, err
}

func (r *Repository) InsertAppointment(ctx context.Context, a model.Appointment, consumeHold *uuid.UUID, now time.Time) (model.Appointment, error) {
	var out model.Appointment
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if consumeHold != nil {
			tag, err := tx.Exec(ctx, `
				DELETE FROM holds
				WHERE id = $1
					AND tech_id = $2
					AND expires_at > $3
					AND (user_id IS NULL OR user_id = $4)
			`, *consumeHold, a.TechnicianID, now, a.UserID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return model.NotFoundError("hold", *consumeHold)
			}
		}
		if err := purgeExpiredHolds(ctx, tx, a.TechnicianID, a.Start, a.End, now); err != nil {
			return err
		}

		// Phone and default address are copied in the same statement so the
		// snapshot matches the user row at commit time.
		inserted, err := scanAppointment(tx.QueryRow(ctx, `
			INSERT INTO appointments (
				user_id, tech_id, start_ts, end_ts, priority, status, request_text,
				phone_snapshot, address_line1, address_line2, city, state, postal_code
			)
			SELECT u.id, $2, $3, $4, $5, $6, $7,
				u.phone, COALESCE(ad.line1, ''), COALESCE(ad.line2, ''), COALESCE(ad.city, ''),
				COALESCE(ad.state, ''), COALESCE(ad.postal_code, '')
			FROM users u
			LEFT JOIN addresses ad ON ad.user_id = u.id AND ad.is_default
			WHERE u.id = $1
			RETURNING `+appointmentColumns,
			a.UserID, a.TechnicianID, a.Start, a.End, a.Priority, a.Status, a.RequestText))
		if err != nil {
			return notFound(err, "user", a.UserID)
		}
		if err := insertBlock(ctx, tx, inserted.TechnicianID, inserted.Start, inserted.End, nil, &inserted.ID); err != nil {
			return err
		}
		if err := r.writeEvent(ctx, tx, outbox.TopicAppointmentBooked, inserted, now); err != nil {
			return err
		}
		out = inserted
		return nil
	})
	if err != nil {
		conflict := &model.ConflictError{TechnicianID: a.TechnicianID, Start: a.Start, End: a.End}
		return model.Appointment{}, blockErr(err, conflict, "technician", a.TechnicianID)
	}
	return out, nil
}

func (r *Repository) AppointmentByNumber(ctx context.Context, number int64) (model.Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE appointment_no = $1
	`, number))
	if err != nil {
		return model.Appointment{}, notFound(err, "appointment", number)
	}
	return a, nil
}

func (r *Repository) AppointmentByID(ctx context.Context, id uuid.UUID) (model.Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = $1
	`, id))
	if err != nil {
		return model.Appointment{}, notFound(err, "appointment", id)
	}
	return a, nil
}

func (r *Repository) ListUserAppointments(ctx context.Context, userID uuid.UUID) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE user_id = $1
		ORDER BY start_ts ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Appointment, error) {
		return scanAppointment(row)
	})
}

// UpdateAppointment applies patch under a row lock and keeps the block in
// step: canceling removes it, reactivating re-inserts it, and a reschedule
// moves it, each under the exclusion constraint.
func (r *Repository) UpdateAppointment(ctx context.Context, id uuid.UUID, patch model.AppointmentPatch, now time.Time) (model.Appointment, error) {
	var before, after model.Appointment
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		before, err = scanAppointment(tx.QueryRow(ctx, `
			SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE
		`, id))
		if err != nil {
			return notFound(err, "appointment", id)
		}
		next := patch.Apply(before)
		if !next.End.After(next.Start) {
			return model.ErrInvalidRange
		}

		after, err = scanAppointment(tx.QueryRow(ctx, `
			UPDATE appointments
			SET start_ts = $2,
				end_ts = $3,
				status = $4,
				request_text = $5,
				updated_at = now()
			WHERE id = $1
			RETURNING `+appointmentColumns,
			id, next.Start, next.End, next.Status, next.RequestText))
		if err != nil {
			return err
		}

		moved := !before.Start.Equal(after.Start) || !before.End.Equal(after.End)
		switch {
		case before.Blocking() && !after.Blocking():
			if _, err := tx.Exec(ctx, `DELETE FROM tech_blocks WHERE appointment_id = $1`, id); err != nil {
				return err
			}
		case !before.Blocking() && after.Blocking():
			if err := purgeExpiredHolds(ctx, tx, after.TechnicianID, after.Start, after.End, now); err != nil {
				return err
			}
			if err := insertBlock(ctx, tx, after.TechnicianID, after.Start, after.End, nil, &id); err != nil {
				return err
			}
		case after.Blocking() && moved:
			if err := purgeExpiredHolds(ctx, tx, after.TechnicianID, after.Start, after.End, now); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				UPDATE tech_blocks SET period = tstzrange($2, $3, '[)')
				WHERE appointment_id = $1
			`, id, after.Start, after.End); err != nil {
				return err
			}
		}

		topic := outbox.TopicAppointmentUpdated
		if before.Blocking() && !after.Blocking() {
			topic = outbox.TopicAppointmentCancelled
		}
		return r.writeEvent(ctx, tx, topic, after, now)
	})
	if err != nil {
		conflict := &model.ConflictError{TechnicianID: before.TechnicianID, Start: patch.Apply(before).Start, End: patch.Apply(before).End}
		return model.Appointment{}, blockErr(err, conflict, "appointment", id)
	}
	return after, nil
}

func (r *Repository) SetCalendarEvent(ctx context.Context, id uuid.UUID, eventID, meetingLink string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET google_event_id = $2, hangout_link = $3, updated_at = now()
		WHERE id = $1
	`, id, eventID, meetingLink)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.NotFoundError("appointment", id)
	}
	return nil
}

func (r *Repository) writeEvent(ctx context.Context, tx pgx.Tx, topic string, a model.Appointment, now time.Time) error {
	evt, err := outbox.NewAppointmentEvent(topic, outbox.AppointmentPayload{
		AppointmentID: a.ID.String(),
		Number:        a.Number,
		UserID:        a.UserID.String(),
		TechnicianID:  a.TechnicianID.String(),
		Start:         a.Start,
		End:           a.End,
		Priority:      string(a.Priority),
		Status:        string(a.Status),
		OccurredAt:    now,
	})
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, evt)
}
