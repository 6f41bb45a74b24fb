package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"invictcrm/models"
)

// DB implements Store on gorm.
type DB struct {
	db *gorm.DB
}

var _ Store = (*DB)(nil)

// Open connects to postgres using dsn.
func Open(dsn string) (*DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(gdb), nil
}

func New(db *gorm.DB) *DB {
	return &DB{db: db}
}

// Gorm exposes the underlying handle for CLIs that need raw queries.
func (s *DB) Gorm() *gorm.DB { return s.db }

// Ping checks the connection.
func (s *DB) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DB) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate runs AutoMigrate per model in dependency order. A failure on one
// table is logged and does not block the others; the joined error is returned.
func (s *DB) Migrate(ctx context.Context, log *slog.Logger) error {
	tables := []struct {
		name  string
		model any
	}{
		{"users", &models.User{}},
		{"student_profiles", &models.StudentProfile{}},
		{"associate_profiles", &models.AssociateProfile{}},
		{"sessions", &models.Session{}},
		{"leads", &models.Lead{}},
		{"lead_activities", &models.LeadActivity{}},
		{"applications", &models.Application{}},
		{"checklist_items", &models.ChecklistItem{}},
		{"tasks", &models.Task{}},
		{"documents", &models.Document{}},
		{"payments", &models.Payment{}},
	}
	var errs []error
	for _, t := range tables {
		if err := s.db.WithContext(ctx).AutoMigrate(t.model); err != nil {
			log.Warn("migration warning", "table", t.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
		}
	}
	return errors.Join(errs...)
}

// mapErr translates gorm and postgres errors into store errors. An id that
// is not a valid uuid cannot name any row, so 22P02 reads as ErrNotFound.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
		case "22P02":
			return ErrNotFound
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// updates applies m to the row with id and fails with ErrNotFound when no
// row matched.
func (s *DB) updates(ctx context.Context, model any, id string, m map[string]any) error {
	if len(m) == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
			return mapErr(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}
	res := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(m)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
