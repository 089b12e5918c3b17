package model

import (
	"errors"
	"time"
)

// Status is an application's position in the pipeline.
type Status string

const (
	StatusApplied    Status = "Applied"
	StatusAssessment Status = "Assessment"
	StatusInterview  Status = "Interview"
	StatusOffer      Status = "Offer"
	StatusRejected   Status = "Rejected"
)

// ValidStatus reports whether s is one of the pipeline statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusApplied, StatusAssessment, StatusInterview, StatusOffer, StatusRejected:
		return true
	}
	return false
}

var ErrNotFound = errors.New("not found")

// Application is one tracked job application and its current status.
//
// EmailMessageID is set when the row was imported from a mailbox message;
// at most one application per owner carries a given message id.
type Application struct {
	ID             string    `json:"id"`
	Owner          string    `json:"-"`
	Company        string    `json:"company"`
	Position       string    `json:"position"`
	Status         Status    `json:"status"`
	DateApplied    time.Time `json:"dateApplied"`
	Salary         string    `json:"salary,omitempty"`
	Location       string    `json:"location,omitempty"`
	JobURL         string    `json:"jobUrl,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	EmailMessageID string    `json:"emailMessageId,omitempty"`
	AutoImported   bool      `json:"autoImported"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ApplicationPatch is used for partial updates.
type ApplicationPatch struct {
	Company     *string    `json:"company"`
	Position    *string    `json:"position"`
	Status      *Status    `json:"status"`
	Salary      *string    `json:"salary"`
	Location    *string    `json:"location"`
	JobURL      *string    `json:"jobUrl"`
	Notes       *string    `json:"notes"`
	DateApplied *time.Time `json:"dateApplied"`
}

// JobEvent is the transient result of classifying one email. It is consumed
// by the merge engine and never persisted.
type JobEvent struct {
	Company      string
	Position     string
	Status       Status
	IsJobRelated bool
}

// SyncRunStatus is the terminal outcome of one sync invocation.
type SyncRunStatus string

const (
	SyncSuccess SyncRunStatus = "success"
	SyncPartial SyncRunStatus = "partial"
	SyncError   SyncRunStatus = "error"
)

// SyncRun is an append-only audit record of one mailbox sync. Rows are never
// mutated after insert.
type SyncRun struct {
	ID                  string        `json:"id"`
	Owner               string        `json:"-"`
	EmailsProcessed     int           `json:"emailsProcessed"`
	ApplicationsAdded   int           `json:"applicationsAdded"`
	ApplicationsUpdated int           `json:"applicationsUpdated"`
	Status              SyncRunStatus `json:"status"`
	ErrorSummary        string        `json:"errorSummary,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
}

// Task is a job-search to-do item. Points are assigned from the category
// table at creation time and awarded on completion.
type Task struct {
	ID          string     `json:"id"`
	Owner       string     `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Completed   bool       `json:"completed"`
	Points      int        `json:"points"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TaskPatch is used for partial updates.
type TaskPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	Completed   *bool   `json:"completed"`
}

// UserStats holds one owner's gamification counters. LastCompletedDate is an
// ISO date (YYYY-MM-DD), empty when no task has ever been completed.
type UserStats struct {
	Owner             string    `json:"-"`
	TotalPoints       int       `json:"totalPoints"`
	CurrentStreak     int       `json:"currentStreak"`
	LastCompletedDate string    `json:"lastCompletedDate,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// AchievementUnlock records that an owner unlocked one achievement.
type AchievementUnlock struct {
	ID            string    `json:"id"`
	Owner         string    `json:"-"`
	AchievementID string    `json:"achievementId"`
	UnlockedAt    time.Time `json:"unlockedAt"`
}

// Resume is an uploaded resume file. FileKey is the blob-store key; at most
// one resume per owner is active at a time.
type Resume struct {
	ID            string    `json:"id"`
	Owner         string    `json:"-"`
	Filename      string    `json:"filename"`
	FileKey       string    `json:"-"`
	ContentType   string    `json:"contentType"`
	SizeBytes     int64     `json:"sizeBytes"`
	Active        bool      `json:"active"`
	ExtractedText string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}
