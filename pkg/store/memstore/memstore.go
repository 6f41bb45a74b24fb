// Package memstore is an in-memory store.Store for tests. The server always
// runs against postgres; nothing outside _test.go files imports this package.
package memstore

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"invictcrm/models"
	"invictcrm/pkg/store"
)

// Store keeps every entity by id. Relations are attached on read so callers
// never share memory with the store.
type Store struct {
	mu   sync.RWMutex
	now  func() time.Time
	seq  int64
	seqs map[string]int64

	users        map[string]models.User
	students     map[string]models.StudentProfile
	associates   map[string]models.AssociateProfile
	sessions     map[string]models.Session // by token hash
	leads        map[string]models.Lead
	activities   map[string]models.LeadActivity
	applications map[string]models.Application
	checklist    map[string]models.ChecklistItem
	tasks        map[string]models.Task
	documents    map[string]models.Document
	payments     map[string]models.Payment
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:          time.Now,
		seqs:         map[string]int64{},
		users:        map[string]models.User{},
		students:     map[string]models.StudentProfile{},
		associates:   map[string]models.AssociateProfile{},
		sessions:     map[string]models.Session{},
		leads:        map[string]models.Lead{},
		activities:   map[string]models.LeadActivity{},
		applications: map[string]models.Application{},
		checklist:    map[string]models.ChecklistItem{},
		tasks:        map[string]models.Task{},
		documents:    map[string]models.Document{},
		payments:     map[string]models.Payment{},
	}
}

// stamp assigns an id when empty and the creation time. A per-row sequence
// keeps "newest first" ordering stable when two rows share a timestamp.
func (s *Store) stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := s.now().UTC()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
	s.seq++
	s.seqs[*id] = s.seq
}

func (s *Store) touch(updated *time.Time) {
	*updated = s.now().UTC()
}

// newestFirst sorts rows by creation sequence, newest first.
func newestFirst[T any](s *Store, rows []T, id func(T) string) {
	slices.SortFunc(rows, func(a, b T) int {
		sa, sb := s.seqs[id(a)], s.seqs[id(b)]
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		}
		return 0
	})
}

func contains(field, search string) bool {
	return strings.Contains(strings.ToLower(field), strings.ToLower(search))
}

func ptr[T any](v T) *T { return &v }

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
