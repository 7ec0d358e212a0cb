package publish

import "crowpost/internal/post"

// Event types emitted on the bus during a job's lifecycle. Observers (UI,
// logs) subscribe to these; nothing in the engine consumes them.
const (
	EventPublishingStarted   = "publishing.started"
	EventPublishingProgress  = "publishing.progress"
	EventPublishingSuccess   = "publishing.success"
	EventPublishingFailed    = "publishing.failed"
	EventPublishingCompleted = "publishing.completed"
	EventPostPublished       = "post.published"
)

// JobEvent announces the start or completion of a whole job.
type JobEvent struct {
	JobID  string `json:"job_id"`
	Status string `json:"status,omitempty"`
}

// ProgressEvent reports incremental per-platform progress for a job.
type ProgressEvent struct {
	JobID    string `json:"job_id"`
	Platform string `json:"platform"`
	Percent  int    `json:"percent"`
}

// PlatformEvent reports one platform's outcome within a job.
type PlatformEvent struct {
	JobID    string              `json:"job_id"`
	Platform string              `json:"platform"`
	Result   post.PlatformResult `json:"result"`
}
