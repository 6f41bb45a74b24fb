// Package sanitize empties CRM tables in a development database and can
// reseed the first super admin afterwards.
package sanitize

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// DefaultTables lists every table the API owns, children first.
var DefaultTables = []string{
	"payments", "documents", "tasks", "checklist_items", "applications",
	"lead_activities", "leads", "sessions", "associate_profiles", "student_profiles", "users",
}

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseTables splits a comma separated list and drops names that are not
// plain identifiers.
func ParseTables(csv string, log *slog.Logger) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !nameRe.MatchString(p) {
			log.Warn("skipping invalid table name", "table", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// Existing returns the subset of tables present in the public schema.
func Existing(ctx context.Context, db *gorm.DB, tables []string) ([]string, error) {
	var out []string
	for _, t := range tables {
		var cnt int64
		if err := db.WithContext(ctx).Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			return nil, fmt.Errorf("query pg_tables for %s: %w", t, err)
		}
		if cnt > 0 {
			out = append(out, t)
		}
	}
	return out, nil
}

// TruncateStatement quotes the validated names into one TRUNCATE.
func TruncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, `"`+t+`"`)
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

func Truncate(ctx context.Context, db *gorm.DB, tables []string) error {
	if len(tables) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(TruncateStatement(tables)).Error
}
