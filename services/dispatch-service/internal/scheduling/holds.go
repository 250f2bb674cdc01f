package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/calendar"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/metrics"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

type HoldRequest struct {
	TechnicianID uuid.UUID
	UserID       *uuid.UUID
	Start        time.Time
	End          time.Time
	// TTL defaults to DefaultHoldTTL and is never shorter than one second.
	TTL  time.Duration
	Note string
	// Tentative also places a tentative event on the technician's calendar.
	Tentative bool
}

// HoldSlot soft-reserves [Start, End) for a technician until
// min(End, now+TTL). Overlaps with a live hold or appointment fail with a
// *model.ConflictError; the caller is expected to pick another slot.
func (s *Service) HoldSlot(ctx context.Context, req HoldRequest) (_ model.Hold, err error) {
	ctx, finish := s.startOp(ctx, "hold", attribute.String("technician_id", req.TechnicianID.String()))
	defer finish(&err)

	start, end := req.Start.UTC(), req.End.UTC()
	if !end.After(start) {
		return model.Hold{}, model.ErrInvalidRange
	}
	now := s.clock()
	if !end.After(now) {
		return model.Hold{}, model.ErrInvalidRange
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = DefaultHoldTTL
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	expires := now.Add(ttl)
	if end.Before(expires) {
		expires = end
	}

	tech, err := s.store.GetTechnician(ctx, req.TechnicianID)
	if err != nil {
		return model.Hold{}, err
	}

	hold, err := s.store.InsertHold(ctx, model.Hold{
		TechnicianID: tech.ID,
		UserID:       req.UserID,
		Start:        start,
		End:          end,
		ExpiresAt:    expires,
		Note:         req.Note,
	}, now)
	if err != nil {
		return model.Hold{}, err
	}
	metrics.HoldsCreated.Inc()
	s.logger.InfoContext(ctx, "slot held",
		"hold_id", hold.ID, "technician_id", tech.ID, "start", start, "end", end, "expires_at", hold.ExpiresAt)

	if req.Tentative && tech.CalendarID != "" {
		_, cerr := s.calendar.UpsertEvent(ctx, tech.CalendarID, calendar.Event{
			Summary:     "(Hold) Service window",
			Description: req.Note,
			Start:       start,
			End:         end,
			TimeZone:    tech.Timezone,
			Tentative:   true,
		})
		if cerr != nil {
			s.degraded(ctx, "hold_event", cerr, "hold_id", hold.ID)
		}
	}
	return hold, nil
}
