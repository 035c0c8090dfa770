package idempotency

import "time"

// Status values for ledger entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// JobRecord is the shape persisted in the job ledger table. One record per
// idempotency key; the worker consults it before running a queued job.
type JobRecord struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key" json:"idempotencyKey"` // PK
	JobType        string    `dynamodbav:"job_type" json:"jobType"`
	Status         string    `dynamodbav:"status" json:"status"`
	Result         string    `dynamodbav:"result,omitempty" json:"result,omitempty"` // JSON encoded job outcome
	Note           string    `dynamodbav:"note,omitempty" json:"note,omitempty"`
	Attempts       int       `dynamodbav:"attempts" json:"attempts"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `dynamodbav:"updated_at" json:"updatedAt"`
	ExpiresAt      int64     `dynamodbav:"expires_at" json:"-"` // TTL epoch seconds
}

// Finished reports whether the job reached a terminal success state.
func (r *JobRecord) Finished() bool {
	return r != nil && r.Status == StatusDone
}
