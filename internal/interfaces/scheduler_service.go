package interfaces

import (
	"context"
	"time"
)

// JobStatus represents the current status of a scheduled job
type JobStatus struct {
	Name        string     `json:"name"`
	Enabled     bool       `json:"enabled"`
	Schedule    string     `json:"schedule"`
	Description string     `json:"description"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	IsRunning   bool       `json:"is_running"`
	LastError   string     `json:"last_error,omitempty"`
}

// JobHandler is the body of a scheduled job
type JobHandler func(ctx context.Context) error

// SchedulerService manages cron-based housekeeping jobs
type SchedulerService interface {
	// RegisterJob registers a job; schedules accept optional seconds and
	// descriptors such as "@every 1m".
	RegisterJob(name, schedule, description string, handler JobHandler) error

	Start() error
	Stop() error
	IsRunning() bool

	// TriggerJob runs a job now, in the background.
	TriggerJob(name string) error

	EnableJob(name string) error
	DisableJob(name string) error

	GetJobStatus(name string) (*JobStatus, error)
	GetAllJobStatuses() map[string]*JobStatus
}
