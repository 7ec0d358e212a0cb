package post

import "time"

// ScheduleIDManual marks queue entries added by hand rather than derived
// from a recurring schedule.
const ScheduleIDManual = "manual"

// Schedule is a recurring posting policy. It is read-only from the engine's
// point of view: an external configuration surface creates and edits it.
//
// StartDate and EndDate are "2006-01-02" strings on purpose. The engine
// parses them per expansion pass so that one malformed schedule is skipped
// without touching the others.
type Schedule struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PostsPerWeek int    `json:"posts_per_week"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`

	// Posting window, hours of day. A candidate time falls in
	// [WindowStartHour, WindowEndHour].
	WindowStartHour int `json:"window_start_hour"`
	WindowEndHour   int `json:"window_end_hour"`

	// Platforms and Caption are applied to every post the schedule
	// produces. Empty Platforms falls back to the configured default set.
	Platforms []string `json:"platforms,omitempty"`
	Caption   string   `json:"caption,omitempty"`
}

// ScheduledPost statuses.
const (
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusCancelled = "cancelled"
)

// ScheduledPost is a concrete, time-bound publish intent, either expanded
// from a Schedule or added manually to the queue.
type ScheduledPost struct {
	ID            string    `json:"id"`
	ScheduleID    string    `json:"schedule_id"`
	ScheduleName  string    `json:"schedule_name,omitempty"`
	MediaPath     string    `json:"media_path"`
	Caption       string    `json:"caption,omitempty"`
	Platforms     []string  `json:"platforms"`
	ScheduledTime time.Time `json:"scheduled_time"`
	CreatedTime   time.Time `json:"created_time"`
	Status        string    `json:"status"`
}

// Job statuses.
const (
	JobStatusPending    = "pending"
	JobStatusPublishing = "publishing"
	JobStatusSuccess    = "success"
	JobStatusFailed     = "failed"
	JobStatusQueued     = "queued"
)

// PlatformResult statuses (a subset of the job statuses).
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// PlatformResult records one platform's outcome within a job.
type PlatformResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Job is one publish attempt spanning 1..N platforms.
//
// Status semantics: "success" means the job was accepted and at least one
// platform succeeded; callers that need all-or-nothing semantics must
// inspect Results per platform. "failed" means every platform failed.
type Job struct {
	ID          string                    `json:"id"`
	MediaPath   string                    `json:"media_path"`
	Caption     string                    `json:"caption,omitempty"`
	Platforms   []string                  `json:"platforms"`
	Status      string                    `json:"status"`
	CreatedAt   time.Time                 `json:"created_at"`
	ScheduledAt *time.Time                `json:"scheduled_at,omitempty"`
	Results     map[string]PlatformResult `json:"results,omitempty"`
	ErrorMsg    string                    `json:"error_message,omitempty"`
}

// Terminal reports whether the job has finished dispatch.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusSuccess || j.Status == JobStatusFailed
}
