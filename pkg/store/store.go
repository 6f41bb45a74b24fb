// Package store is the record store access layer. Services depend on the
// narrow per-entity interfaces; DB implements all of them on gorm/postgres and
// memstore implements them in memory.
package store

import (
	"context"
	"errors"
	"time"

	"invictcrm/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")

	// ErrInvalidReference means a foreign key points at a missing row.
	ErrInvalidReference = errors.New("invalid reference")
)

type LeadFilter struct {
	Status models.LeadStatus
	Search string
}

type LeadPatch struct {
	Status       *models.LeadStatus
	AssignedToID *string
	Score        *int
}

type Leads interface {
	CreateLead(ctx context.Context, lead *models.Lead) error
	// ListLeads returns newest first with the assignee summary filled.
	ListLeads(ctx context.Context, f LeadFilter) ([]models.Lead, error)
	// GetLead includes activities and tasks.
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	UpdateLead(ctx context.Context, id string, p LeadPatch) (*models.Lead, error)
	DeleteLead(ctx context.Context, id string) error
	AddLeadActivity(ctx context.Context, a *models.LeadActivity) error
	CountLeads(ctx context.Context) (int64, error)
}

type ApplicationPatch struct {
	Status   *models.ApplicationStatus
	Deadline *time.Time
}

type Applications interface {
	CreateApplication(ctx context.Context, app *models.Application) error
	// ListApplications includes student and student user, newest first.
	ListApplications(ctx context.Context) ([]models.Application, error)
	// GetApplication includes student, student user, checklist items and tasks.
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	UpdateApplication(ctx context.Context, id string, p ApplicationPatch) (*models.Application, error)
	CountApplications(ctx context.Context, studentID string) (int64, error)
}

type UserPatch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Role         *models.Role
	PasswordHash []byte
}

type Users interface {
	// CreateUser inserts the user and any attached profile atomically.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, p UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type StudentFilter struct {
	Status models.StudentStatus
	Search string
}

type StudentPatch struct {
	Status           *models.StudentStatus
	ReadinessScore   *int
	Phone            *string
	DateOfBirth      *time.Time
	Nationality      *string
	PassportNumber   *string
	PassportExpiry   *time.Time
	ParentName       *string
	ParentPhone      *string
	EmergencyContact *string
	Address          *string
}

type Students interface {
	CreateStudent(ctx context.Context, s *models.StudentProfile) error
	// ListStudents includes user and applications, most recently updated first.
	ListStudents(ctx context.Context, f StudentFilter) ([]models.StudentProfile, error)
	// GetStudent includes user, applications, documents and payments.
	GetStudent(ctx context.Context, id string) (*models.StudentProfile, error)
	GetStudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	UpdateStudent(ctx context.Context, id string, p StudentPatch) (*models.StudentProfile, error)
	CountStudents(ctx context.Context) (int64, error)
}

type DocumentPatch struct {
	Size         *int64
	UploadedAt   *time.Time
	Status       *models.DocumentStatus
	ReviewNotes  *string
	ThumbnailKey *string
}

type Documents interface {
	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// ListDocuments returns a student's documents newest first.
	ListDocuments(ctx context.Context, studentID string) ([]models.Document, error)
	UpdateDocument(ctx context.Context, id string, p DocumentPatch) (*models.Document, error)
}

type PaymentFilter struct {
	Status models.PaymentStatus
	From   time.Time // inclusive; zero means unbounded
	To     time.Time // exclusive; zero means unbounded
}

type Payments interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByProviderID(ctx context.Context, providerID string) (*models.Payment, error)
	SetPaymentStatus(ctx context.Context, providerID string, status models.PaymentStatus) error
	ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, error)
	// SumPayments returns the total amount and row count matching f.
	SumPayments(ctx context.Context, f PaymentFilter) (total int64, count int64, err error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, tokenHash string) (*models.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
	// DeleteUserSessions signs a user out everywhere.
	DeleteUserSessions(ctx context.Context, userID string) (int64, error)
}

type TaskPatch struct {
	Completed  *bool
	RemindedAt *time.Time
}

type Tasks interface {
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, p TaskPatch) (*models.Task, error)
	// DueTasks returns open, not yet reminded tasks due before the given
	// time, with the assignee loaded.
	DueTasks(ctx context.Context, before time.Time) ([]models.Task, error)
	// ClaimTaskReminder sets reminded_at only if the task is still open and
	// unreminded. It reports false when another caller got there first.
	ClaimTaskReminder(ctx context.Context, id string, at time.Time) (bool, error)
	// ReleaseTaskReminder clears reminded_at so the task is picked up again.
	ReleaseTaskReminder(ctx context.Context, id string) error
}

// Store is the full set of accessors.
type Store interface {
	Leads
	Applications
	Users
	Students
	Documents
	Payments
	Sessions
	Tasks
}
