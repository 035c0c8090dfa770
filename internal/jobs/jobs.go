// Package jobs describes the background work the API can hand to the queue
// worker and runs it.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maisoncleo/atelier-tracker/internal/assignments"
	"github.com/maisoncleo/atelier-tracker/internal/idempotency"
	"github.com/maisoncleo/atelier-tracker/internal/syncer"
)

const (
	TypeSync      = "sync"
	TypeReconcile = "reconcile"
	TypeSweep     = "sweep"
)

const sinceLayout = "2006-01-02"

var ErrInvalidMessage = errors.New("invalid job message")

// Message is the payload sent from API -> SQS -> worker.
type Message struct {
	JobType        string `json:"job_type"`
	IdempotencyKey string `json:"idempotency_key"`
	Since          string `json:"since,omitempty"` // YYYY-MM-DD, sync only
	CorrelationID  string `json:"correlation_id,omitempty"`
}

func (m Message) Validate() error {
	switch m.JobType {
	case TypeSync, TypeReconcile, TypeSweep:
	default:
		return fmt.Errorf("%w: job type %q", ErrInvalidMessage, m.JobType)
	}
	if m.IdempotencyKey == "" {
		return fmt.Errorf("%w: missing idempotency key", ErrInvalidMessage)
	}
	if m.Since != "" {
		if _, err := time.Parse(sinceLayout, m.Since); err != nil {
			return fmt.Errorf("%w: since %q", ErrInvalidMessage, m.Since)
		}
	}
	return nil
}

// SinceIn parses Since as a local midnight in loc. Nil when unset.
func (m Message) SinceIn(loc *time.Location) (*time.Time, error) {
	if m.Since == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(sinceLayout, m.Since, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: since %q", ErrInvalidMessage, m.Since)
	}
	return &t, nil
}

// Publisher is the queue the messages go to.
type Publisher interface {
	SendJobMessage(ctx context.Context, messageBody string, attributes map[string]string) error
}

// Enqueuer records a job in the ledger before publishing it, so a repeated
// request with the same key never queues the job twice.
type Enqueuer struct {
	ledger    *idempotency.Store
	publisher Publisher
}

func NewEnqueuer(ledger *idempotency.Store, publisher Publisher) *Enqueuer {
	return &Enqueuer{ledger: ledger, publisher: publisher}
}

// Enqueue returns the ledger record of the job and whether this call queued it.
// A missing key gets a fresh uuid.
func (e *Enqueuer) Enqueue(ctx context.Context, msg Message) (*idempotency.JobRecord, bool, error) {
	if msg.IdempotencyKey == "" {
		msg.IdempotencyKey = uuid.NewString()
	}
	if err := msg.Validate(); err != nil {
		return nil, false, err
	}

	created, err := e.ledger.CreateIfNotExists(ctx, msg.IdempotencyKey, msg.JobType)
	if err != nil {
		return nil, false, fmt.Errorf("record job: %w", err)
	}
	if !created {
		rec, err := e.ledger.Get(ctx, msg.IdempotencyKey)
		if err != nil {
			return nil, false, fmt.Errorf("load job: %w", err)
		}
		return rec, false, nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, false, fmt.Errorf("marshal message: %w", err)
	}
	attrs := map[string]string{
		"job_type":        msg.JobType,
		"idempotency_key": msg.IdempotencyKey,
		"correlation_id":  msg.CorrelationID,
	}
	if err := e.publisher.SendJobMessage(ctx, string(body), attrs); err != nil {
		_ = e.ledger.MarkFailed(ctx, msg.IdempotencyKey, fmt.Sprintf("sqs_send_failed: %v", err))
		return nil, false, fmt.Errorf("enqueue: %w", err)
	}

	rec, err := e.ledger.Get(ctx, msg.IdempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("load job: %w", err)
	}
	return rec, true, nil
}

type SyncRunner interface {
	Run(ctx context.Context, since *time.Time) (syncer.Result, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context) (assignments.ReconcileResult, error)
}

type Sweeper interface {
	SweepUndispatched(ctx context.Context) (int, error)
}

// SweepResult is the outcome of a dispatch sweep job.
type SweepResult struct {
	Dispatched int `json:"dispatched"`
}

// Runner executes a job message against the services.
type Runner struct {
	Sync      SyncRunner
	Reconcile Reconciler
	Sweep     Sweeper
	Location  *time.Location
}

// Run executes msg and returns its JSON-serializable outcome.
func (r *Runner) Run(ctx context.Context, msg Message) (any, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	switch msg.JobType {
	case TypeSync:
		loc := r.Location
		if loc == nil {
			loc = time.UTC
		}
		since, err := msg.SinceIn(loc)
		if err != nil {
			return nil, err
		}
		return r.Sync.Run(ctx, since)
	case TypeReconcile:
		return r.Reconcile.Reconcile(ctx)
	default:
		n, err := r.Sweep.SweepUndispatched(ctx)
		if err != nil {
			return nil, err
		}
		return SweepResult{Dispatched: n}, nil
	}
}
