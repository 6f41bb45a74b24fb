// Package notify turns domain events into broker jobs. The job names and
// payload shapes are shared with the worker that consumes them.
package notify

import "time"

// Job names.
const (
	JobLeadWelcome       = "send-lead-welcome"
	JobStaffNotification = "send-staff-notification"
	JobApplicationStatus = "application_status"
	JobTaskReminder      = "task_reminder"
	JobWelcome           = "welcome"
	JobProcessUpload     = "process-upload"
)

// Known reports whether name is one of the job names above.
func Known(name string) bool {
	switch name {
	case JobLeadWelcome, JobStaffNotification, JobApplicationStatus, JobTaskReminder, JobWelcome, JobProcessUpload:
		return true
	}
	return false
}

type LeadWelcome struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	LeadID string `json:"leadId"`
}

type StaffNotification struct {
	Email    string `json:"email"`
	LeadID   string `json:"leadId"`
	LeadName string `json:"leadName"`
}

type ApplicationStatus struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	ApplicationID string `json:"applicationId"`
	University    string `json:"university"`
	Status        string `json:"status"`
}

type TaskReminder struct {
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	TaskID  string    `json:"taskId"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"dueDate"`
}

type Welcome struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

type ProcessUpload struct {
	DocumentID string `json:"documentId"`
	StorageKey string `json:"storageKey"`
	MimeType   string `json:"mimeType"`
}
