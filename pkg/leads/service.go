// Package leads implements lead capture and the staff-side lead pipeline.
package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"invictcrm/models"
	"invictcrm/pkg/apperr"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/events"
	"invictcrm/pkg/metrics"
	"invictcrm/pkg/notify"
	"invictcrm/pkg/store"
)

type Service struct {
	store      store.Leads
	notify     notify.Notifier
	events     events.Publisher
	staffEmail string
	log        *slog.Logger
}

func NewService(s store.Leads, n notify.Notifier, p events.Publisher, staffEmail string, log *slog.Logger) *Service {
	return &Service{store: s, notify: n, events: p, staffEmail: staffEmail, log: log}
}

// CreateInput is the public lead form. Status is accepted but ignored.
type CreateInput struct {
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	InterestedDegree  string   `json:"interestedDegree"`
	InterestedCountry string   `json:"interestedCountry"`
	Destinations      []string `json:"destinations"`
	BudgetRange       string   `json:"budgetRange"`
	Timeline          string   `json:"timeline"`
	Source            string   `json:"source"`
	Status            string   `json:"status"`
}

// UpdateInput carries the staff-editable fields. Nil means unchanged; an
// empty AssignedToID clears the assignment.
type UpdateInput struct {
	Status       *string `json:"status"`
	AssignedToID *string `json:"assignedToId"`
	Score        *int    `json:"score"`
}

// Create stores a new lead with status NEW whatever the caller sent, then
// queues the welcome email and the staff alert.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Lead, error) {
	in.FirstName, in.LastName = strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return nil, apperr.Validation("firstName and lastName are required")
	}
	email, err := auth.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	lead := &models.Lead{
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Email:             email,
		Phone:             strings.TrimSpace(in.Phone),
		InterestedDegree:  in.InterestedDegree,
		InterestedCountry: in.InterestedCountry,
		Destinations:      in.Destinations,
		BudgetRange:       in.BudgetRange,
		Timeline:          in.Timeline,
		Source:            in.Source,
		Status:            models.LeadNew,
	}
	if err := s.store.CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	s.activity(ctx, lead.ID, models.ActivityCreated, "source: "+orDash(lead.Source))
	metrics.RecordLead(lead.Source)

	s.notify.Notify(ctx, notify.JobLeadWelcome, notify.LeadWelcome{Email: lead.Email, Name: lead.FullName(), LeadID: lead.ID})
	s.notify.Notify(ctx, notify.JobStaffNotification, notify.StaffNotification{Email: s.staffEmail, LeadID: lead.ID, LeadName: lead.FullName()})
	s.events.Publish(ctx, events.Event{Type: events.LeadCreated, EntityID: lead.ID, Data: map[string]string{"source": lead.Source}})
	return lead, nil
}

// FindAll filters by exact status ("" or "all" for none) and by a
// case-insensitive substring of first name, last name or email.
func (s *Service) FindAll(ctx context.Context, status, search string) ([]models.Lead, error) {
	var f store.LeadFilter
	if status != "" && !strings.EqualFold(status, "all") {
		st, ok := models.ParseLeadStatus(strings.ToUpper(status))
		if !ok {
			return nil, apperr.Validation("unknown lead status " + status)
		}
		f.Status = st
	}
	f.Search = strings.TrimSpace(search)
	leads, err := s.store.ListLeads(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

func (s *Service) FindOne(ctx context.Context, id string) (*models.Lead, error) {
	lead, err := s.store.GetLead(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Lead not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// Update applies a partial change. Any status may follow any other.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.Lead, error) {
	before, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	var patch store.LeadPatch
	if in.Status != nil {
		st, ok := models.ParseLeadStatus(strings.ToUpper(*in.Status))
		if !ok {
			return nil, apperr.Validation("unknown lead status " + *in.Status)
		}
		patch.Status = &st
	}
	if in.Score != nil {
		if *in.Score < 0 || *in.Score > 100 {
			return nil, apperr.Validation("score must be between 0 and 100")
		}
		patch.Score = in.Score
	}
	patch.AssignedToID = in.AssignedToID

	lead, err := s.store.UpdateLead(ctx, id, patch)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("Lead not found")
	case errors.Is(err, store.ErrInvalidReference):
		return nil, apperr.Validation("assignedToId does not match a user")
	}
	if err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}

	if patch.Status != nil && *patch.Status != before.Status {
		s.activity(ctx, id, models.ActivityStatusChanged, fmt.Sprintf("%s -> %s", before.Status, lead.Status))
	}
	if in.AssignedToID != nil && deref(before.AssignedToID) != *in.AssignedToID {
		s.activity(ctx, id, models.ActivityAssigned, "assigned to "+orDash(*in.AssignedToID))
	}
	s.events.Publish(ctx, events.Event{Type: events.LeadUpdated, EntityID: id, Data: map[string]any{"status": lead.Status, "assignedToId": lead.AssignedToID}})

	// Re-read so the returned lead carries the activities written above.
	fresh, err := s.store.GetLead(ctx, id)
	if err != nil {
		s.log.Warn("reload lead after update", "lead_id", id, "err", err)
		return lead, nil
	}
	return fresh, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	if _, err := s.FindOne(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteLead(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete lead: %w", err)
	}
	return nil
}

// activity appends to the lead history. History is best effort.
func (s *Service) activity(ctx context.Context, leadID string, kind models.ActivityKind, detail string) {
	err := s.store.AddLeadActivity(ctx, &models.LeadActivity{LeadID: leadID, Kind: kind, Detail: detail})
	if err != nil {
		s.log.Warn("record lead activity", "lead_id", leadID, "kind", kind, "err", err)
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
