package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Attribute names the job queue reads back from job attributes.
const (
	AttrJobType        = "job_type"
	AttrIdempotencyKey = "idempotency_key"
)

var ErrNoQueue = errors.New("job queue url is not configured")

// JobQueue sends background jobs to SQS. On a FIFO queue jobs are grouped by
// type and deduplicated by idempotency key.
type JobQueue struct {
	sqs      SQSAPI
	queueURL string
	fifo     bool
}

func NewJobQueue(client SQSAPI, queueURL string) *JobQueue {
	return &JobQueue{
		sqs:      client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

// SendJobMessage enqueues body. Empty attribute values are not sent.
func (q *JobQueue) SendJobMessage(ctx context.Context, body string, attrs map[string]string) error {
	if q.queueURL == "" {
		return ErrNoQueue
	}
	in := &sqs.SendMessageInput{
		QueueUrl:          sdkaws.String(q.queueURL),
		MessageBody:       sdkaws.String(body),
		MessageAttributes: messageAttributes(attrs),
	}
	if q.fifo {
		group := attrs[AttrJobType]
		if group == "" {
			group = "default"
		}
		in.MessageGroupId = sdkaws.String(group)
		if key := attrs[AttrIdempotencyKey]; key != "" {
			in.MessageDeduplicationId = sdkaws.String(key)
		}
	}

	if _, err := q.sqs.SendMessage(ctx, in); err != nil {
		return fmt.Errorf("send %s job: %w", attrs[AttrJobType], err)
	}
	return nil
}

func messageAttributes(attrs map[string]string) map[string]sqstypes.MessageAttributeValue {
	out := make(map[string]sqstypes.MessageAttributeValue, len(attrs))
	for name, v := range attrs {
		if v == "" {
			continue
		}
		out[name] = sqstypes.MessageAttributeValue{DataType: sdkaws.String("String"), StringValue: sdkaws.String(v)}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
