package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/maisoncleo/atelier-tracker/internal/aws"
)

// ErrUnknownKey is returned when a transition targets a key that was never created.
var ErrUnknownKey = errors.New("unknown idempotency key")

// Store keeps the processed-job ledger in DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewStore returns a configured Store. ttlWindow sets expires_at on new records.
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// CreateIfNotExists records key as IN_PROGRESS for jobType.
// Returns (true, nil) when created and (false, nil) when the key already exists.
func (s *Store) CreateIfNotExists(ctx context.Context, key, jobType string) (bool, error) {
	now := s.nowFunc().UTC()
	rec := JobRecord{
		IdempotencyKey: key,
		JobType:        jobType,
		Status:         StatusInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttlWindow).Unix(),
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

// Get retrieves a record by key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*JobRecord, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       keyOf(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec JobRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// Begin counts one more processing attempt and moves the record back to
// IN_PROGRESS. A worker calls it before running the job.
func (s *Store) Begin(ctx context.Context, key string, attempt int) error {
	return s.transition(ctx, key, "SET #s = :s, attempts = :a, updated_at = :ua", map[string]types.AttributeValue{
		":s":  &types.AttributeValueMemberS{Value: StatusInProgress},
		":a":  &types.AttributeValueMemberN{Value: strconv.Itoa(attempt)},
		":ua": s.timestamp(),
	})
}

// MarkDone sets status to DONE and stores the JSON encoded job outcome.
func (s *Store) MarkDone(ctx context.Context, key, result string) error {
	if err := s.transition(ctx, key, "SET #s = :s, #r = :r, updated_at = :ua REMOVE note", map[string]types.AttributeValue{
		":s":  &types.AttributeValueMemberS{Value: StatusDone},
		":r":  &types.AttributeValueMemberS{Value: result},
		":ua": s.timestamp(),
	}); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return nil
}

// MarkFailed marks the record FAILED with a note so the job can be retried.
func (s *Store) MarkFailed(ctx context.Context, key, note string) error {
	if err := s.transition(ctx, key, "SET #s = :s, note = :n, updated_at = :ua", map[string]types.AttributeValue{
		":s":  &types.AttributeValueMemberS{Value: StatusFailed},
		":n":  &types.AttributeValueMemberS{Value: note},
		":ua": s.timestamp(),
	}); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

func (s *Store) transition(ctx context.Context, key, expr string, values map[string]types.AttributeValue) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       keyOf(key),
		UpdateExpression:          awsString(expr),
		ConditionExpression:       awsString("attribute_exists(idempotency_key)"),
		ExpressionAttributeNames:  names(expr),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// names returns only the placeholders expr uses; DynamoDB rejects unused ones.
func names(expr string) map[string]string {
	out := map[string]string{"#s": "status"}
	if strings.Contains(expr, "#r") {
		out["#r"] = "result"
	}
	return out
}

func (s *Store) timestamp() types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339)}
}

func isConditionFailure(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"idempotency_key": &types.AttributeValueMemberS{Value: key},
	}
}

func awsString(s string) *string { return &s }
