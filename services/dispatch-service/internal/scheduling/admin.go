package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
)

func (s *Service) CreateTechnician(ctx context.Context, t model.Technician) (model.Technician, error) {
	t.Code = strings.TrimSpace(t.Code)
	t.FullName = strings.TrimSpace(t.FullName)
	if t.Code == "" || t.FullName == "" {
		return model.Technician{}, fmt.Errorf("code and full name are required: %w", model.ErrInvalidInput)
	}
	if t.Timezone == "" {
		t.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(t.Timezone); err != nil {
		return model.Technician{}, fmt.Errorf("timezone %q: %w", t.Timezone, model.ErrInvalidInput)
	}
	t.Skills = normalizeSkills(t.Skills)
	return s.store.CreateTechnician(ctx, t)
}

func (s *Service) GetTechnician(ctx context.Context, id uuid.UUID) (model.Technician, error) {
	return s.store.GetTechnician(ctx, id)
}

func (s *Service) AddTechnicianSkills(ctx context.Context, id uuid.UUID, skills []string) (model.Technician, error) {
	skills = normalizeSkills(skills)
	if len(skills) == 0 {
		return model.Technician{}, fmt.Errorf("at least one skill is required: %w", model.ErrInvalidInput)
	}
	return s.store.AddTechnicianSkills(ctx, id, skills)
}

func (s *Service) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if strings.TrimSpace(u.FullName) == "" && strings.TrimSpace(u.Phone) == "" {
		return model.User{}, fmt.Errorf("full name or phone is required: %w", model.ErrInvalidInput)
	}
	if u.Address != nil {
		u.Address.IsDefault = true
	}
	return s.store.CreateUser(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) ListUserAppointments(ctx context.Context, userID uuid.UUID) ([]model.Appointment, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListUserAppointments(ctx, userID)
}

// normalizeSkills lowercases, trims and de-duplicates skill tags.
func normalizeSkills(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
