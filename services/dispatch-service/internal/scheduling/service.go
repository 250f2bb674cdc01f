package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/calendar"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/metrics"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultHoldTTL = 180 * time.Second

	nearestHorizon = 7 * 24 * time.Hour
	nearestLimit   = 200
)

// HorizonPolicy maps a priority tier to how far ahead availability is
// searched when the caller gives no window end.
type HorizonPolicy map[model.Priority]time.Duration

func DefaultHorizons() HorizonPolicy {
	return HorizonPolicy{
		model.PriorityP1: 24 * time.Hour,
		model.PriorityP2: 72 * time.Hour,
		model.PriorityP3: 7 * 24 * time.Hour,
	}
}

// For falls back to the P3 horizon for unknown tiers.
func (p HorizonPolicy) For(pr model.Priority) time.Duration {
	if d, ok := p[pr]; ok && d > 0 {
		return d
	}
	if d, ok := p[model.PriorityP3]; ok && d > 0 {
		return d
	}
	return 7 * 24 * time.Hour
}

type Service struct {
	store    Store
	calendar calendar.Calendar
	logger   *slog.Logger
	horizons HorizonPolicy
	now      func() time.Time
	tracer   trace.Tracer
}

type Option func(*Service)

func WithCalendar(c calendar.Calendar) Option {
	return func(s *Service) {
		if c != nil {
			s.calendar = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithHorizons(h HorizonPolicy) Option {
	return func(s *Service) {
		if len(h) > 0 {
			s.horizons = h
		}
	}
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		calendar: calendar.Noop{},
		logger:   logger,
		horizons: DefaultHorizons(),
		now:      time.Now,
		tracer:   otel.Tracer("github.com/plumbdesk/dispatch/scheduling"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// startOp opens a span and returns a finish func that records the error and latency.
func (s *Service) startOp(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "scheduling."+op, trace.WithAttributes(attrs...))
	started := time.Now()
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
			if errors.Is(*errp, model.ErrConflict) {
				metrics.Conflicts.WithLabelValues(op).Inc()
			}
		}
		metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
		span.End()
	}
}

// degraded records a swallowed external calendar failure.
func (s *Service) degraded(ctx context.Context, op string, err error, args ...any) {
	metrics.CalendarDegraded.WithLabelValues(op).Inc()
	trace.SpanFromContext(ctx).AddEvent("calendar degraded", trace.WithAttributes(attribute.String("operation", op)))
	s.logger.WarnContext(ctx, "external calendar degraded", append([]any{"operation", op, "err", err}, args...)...)
}
