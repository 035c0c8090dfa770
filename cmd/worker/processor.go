package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"github.com/maisoncleo/atelier-tracker/internal/idempotency"
	"github.com/maisoncleo/atelier-tracker/internal/jobs"
	"github.com/maisoncleo/atelier-tracker/internal/syncer"
)

// JobRunner executes one queued job.
type JobRunner interface {
	Run(ctx context.Context, msg jobs.Message) (any, error)
}

// Processor handles SQS messages and runs the jobs they describe, at most
// once successfully per idempotency key.
type Processor struct {
	ledger *idempotency.Store
	runner JobRunner
	logger logrus.FieldLogger
}

// NewProcessor creates a new worker processor.
func NewProcessor(ledger *idempotency.Store, runner JobRunner, logger logrus.FieldLogger) *Processor {
	return &Processor{
		ledger: ledger,
		runner: runner,
		logger: logger.WithField("module", "worker"),
	}
}

// Handle receives an SQS batch and reports the messages to retry. A failed
// message goes back to the queue alone; after too many attempts it lands in the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.WithError(err).WithField("message_id", rec.MessageId).Error("job failed")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg jobs.Message
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	log := p.logger.WithFields(logrus.Fields{
		"job_type":        msg.JobType,
		"idempotency_key": msg.IdempotencyKey,
		"correlation_id":  msg.CorrelationID,
	})

	// Step 1: consult the ledger. Scheduled messages arrive without a record.
	job, err := p.ledger.Get(ctx, msg.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		if _, err := p.ledger.CreateIfNotExists(ctx, msg.IdempotencyKey, msg.JobType); err != nil {
			return fmt.Errorf("record job: %w", err)
		}
		job = &idempotency.JobRecord{IdempotencyKey: msg.IdempotencyKey}
	}
	if job.Finished() {
		log.Info("duplicate delivery of a finished job")
		return nil
	}

	// Step 2: run
	attempt := job.Attempts + 1
	if err := p.ledger.Begin(ctx, msg.IdempotencyKey, attempt); err != nil {
		return err
	}
	out, err := p.runner.Run(ctx, msg)
	if err != nil {
		note := err.Error()
		if errors.Is(err, syncer.ErrSyncInProgress) {
			note = "another sync was running, retrying"
		}
		if mErr := p.ledger.MarkFailed(ctx, msg.IdempotencyKey, note); mErr != nil {
			log.WithError(mErr).Warn("could not mark job failed")
		}
		return fmt.Errorf("run %s job: %w", msg.JobType, err)
	}

	// Step 3: record the outcome for duplicate requests
	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := p.ledger.MarkDone(ctx, msg.IdempotencyKey, string(body)); err != nil {
		return fmt.Errorf("failed to update ledger: %w", err)
	}
	log.WithField("attempt", attempt).Info("job completed")
	return nil
}
