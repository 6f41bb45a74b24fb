// Package dashboard computes the headline numbers shown on the dashboard
// home page.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"invictcrm/models"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/store"
)

type Store interface {
	CountLeads(ctx context.Context) (int64, error)
	CountStudents(ctx context.Context) (int64, error)
	CountApplications(ctx context.Context, studentID string) (int64, error)
	SumPayments(ctx context.Context, f store.PaymentFilter) (int64, int64, error)
	GetStudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	GetStudent(ctx context.Context, id string) (*models.StudentProfile, error)
}

type Stat struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Note  string `json:"change,omitempty"`
}

type Progress struct {
	Status models.StudentStatus `json:"status"`
	Score  int                  `json:"score"`
}

type Stats struct {
	Role     models.Role `json:"role"`
	Stats    []Stat      `json:"stats"`
	Progress *Progress   `json:"progress,omitempty"`
}

type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

func (s *Service) Stats(ctx context.Context, caller auth.Identity) (*Stats, error) {
	switch {
	case caller.Role == models.RoleStudent:
		return s.student(ctx, caller)
	case caller.IsStaff():
		return s.staff(ctx, caller)
	}
	// Associates have no dashboard numbers yet.
	return &Stats{Role: caller.Role, Stats: []Stat{}}, nil
}

func (s *Service) student(ctx context.Context, caller auth.Identity) (*Stats, error) {
	out := &Stats{Role: caller.Role, Stats: []Stat{}}
	sp, err := s.store.GetStudentByUserID(ctx, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	if sp, err = s.store.GetStudent(ctx, sp.ID); err != nil {
		return nil, err
	}
	apps, err := s.store.CountApplications(ctx, sp.ID)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	approved := 0
	for _, d := range sp.Documents {
		if d.Status == models.DocumentApproved {
			approved++
		}
	}
	out.Stats = []Stat{
		{Name: "Application Status", Value: strings.ReplaceAll(string(sp.Status), "_", " "), Note: "Live Tracking"},
		{Name: "Readiness Score", Value: fmt.Sprintf("%d%%", sp.ReadinessScore), Note: "Based on docs"},
		{Name: "Applications", Value: strconv.FormatInt(apps, 10), Note: "Total active"},
		{Name: "Documents", Value: fmt.Sprintf("%d/%d", approved, len(sp.Documents)), Note: "Approved"},
	}
	out.Progress = &Progress{Status: sp.Status, Score: sp.ReadinessScore}
	return out, nil
}

func (s *Service) staff(ctx context.Context, caller auth.Identity) (*Stats, error) {
	leads, err := s.store.CountLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	students, err := s.store.CountStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}
	apps, err := s.store.CountApplications(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	revenue, _, err := s.store.SumPayments(ctx, store.PaymentFilter{Status: models.PaymentSuccess})
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	return &Stats{Role: caller.Role, Stats: []Stat{
		{Name: "Total Leads", Value: strconv.FormatInt(leads, 10)},
		{Name: "Active Students", Value: strconv.FormatInt(students, 10)},
		{Name: "Applications", Value: strconv.FormatInt(apps, 10)},
		{Name: "Revenue", Value: Euros(revenue)},
	}}, nil
}

// Euros formats an amount in cents, e.g. 123456 as "€1,234.56".
func Euros(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s€%s.%02d", sign, b.String(), cents%100)
}
