// Package report prints month-bounded revenue summaries from successful
// payments.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"invictcrm/models"
	"invictcrm/pkg/dashboard"
	"invictcrm/pkg/store"
)

type Store interface {
	SumPayments(ctx context.Context, f store.PaymentFilter) (int64, int64, error)
	ListPayments(ctx context.Context, f store.PaymentFilter) ([]models.Payment, error)
}

// Summary covers one calendar month in UTC.
type Summary struct {
	Month    string
	Start    time.Time
	End      time.Time
	Count    int64
	Total    int64
	Payments []models.Payment
}

// MonthBounds parses YYYY-MM into [start, end).
func MonthBounds(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Monthly sums SUCCESS payments created in month. The rows are included
// when list is set.
func Monthly(ctx context.Context, s Store, month string, list bool) (*Summary, error) {
	start, end, err := MonthBounds(month)
	if err != nil {
		return nil, err
	}
	f := store.PaymentFilter{Status: models.PaymentSuccess, From: start, To: end}
	total, count, err := s.SumPayments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	sum := &Summary{Month: month, Start: start, End: end, Count: count, Total: total}
	if list {
		if sum.Payments, err = s.ListPayments(ctx, f); err != nil {
			return nil, fmt.Errorf("list payments: %w", err)
		}
	}
	return sum, nil
}

func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Revenue for month=%s (UTC):\n", s.Month)
	fmt.Fprintf(w, "  payments=%d total=%s\n", s.Count, dashboard.Euros(s.Total))
	for _, p := range s.Payments {
		fmt.Fprintf(w, "%s|%s|%s|%d|%s|%s\n", p.ID, p.UserID, p.Kind, p.Amount, p.ProviderID, p.CreatedAt.Format(time.RFC3339))
	}
}
