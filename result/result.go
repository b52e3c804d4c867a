// Package result persists run history: one Run per invocation plus one
// Attempt row per credential probed. Secrets are never stored.
package result

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loginwatch/verdict"
)

var (
	ErrRunNotFound      = errors.New("run not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrInvalidBaseURL   = errors.New("run base URL is required")
	ErrInvalidIdentity  = errors.New("attempt identity is required")
	ErrInvalidVerdict   = errors.New("invalid attempt verdict")
	ErrInvalidRunStatus = errors.New("invalid run status")
)

// Status is a run's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Run is one full invocation over a credential list.
type Run struct {
	ID        uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	BaseURL   string     `json:"base_url" gorm:"type:varchar(255);not null"`
	Status    Status     `json:"status" gorm:"type:varchar(20);not null;default:'running'"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	SuccessCount     int `json:"success_count"`
	FailInvalidCount int `json:"fail_invalid_count"`
	FailUnknownCount int `json:"fail_unknown_count"`
	ErrorCount       int `json:"error_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Run) Validate() error {
	if r.BaseURL == "" {
		return ErrInvalidBaseURL
	}
	if r.Status != "" && !r.Status.IsValid() {
		return ErrInvalidRunStatus
	}
	return nil
}

// BeforeCreate assigns defaults.
func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusRunning
	}
	if r.StartTime.IsZero() {
		r.StartTime = time.Now()
	}
	return nil
}

// Attempt is the persisted record of one classified login attempt.
type Attempt struct {
	ID       uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	RunID    uuid.UUID       `json:"run_id" gorm:"type:char(36);not null;index:idx_attempts_run_id"`
	Identity string          `json:"identity" gorm:"type:varchar(255);not null"`
	Verdict  verdict.Verdict `json:"verdict" gorm:"type:varchar(20);not null"`
	Reason   string          `json:"reason" gorm:"type:varchar(255)"`

	UsedStrategy  string `json:"used_strategy,omitempty" gorm:"type:varchar(50)"`
	ScreenshotKey string `json:"screenshot_key,omitempty" gorm:"type:varchar(255)"`
	ExcerptKey    string `json:"excerpt_key,omitempty" gorm:"type:varchar(255)"`

	StartTime  time.Time `json:"start_time"`
	DurationMs int64     `json:"duration_ms"`

	CreatedAt time.Time `json:"created_at"`
}

func (a *Attempt) Validate() error {
	if a.Identity == "" {
		return ErrInvalidIdentity
	}
	if !a.Verdict.IsValid() {
		return ErrInvalidVerdict
	}
	return nil
}

// BeforeCreate assigns the record ID.
func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
