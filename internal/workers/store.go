// Package workers stores the tricoteuses items can be assigned to.
package workers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/maisoncleo/atelier-tracker/internal/aws"
)

var ErrNotFound = errors.New("worker not found")

type Worker struct {
	ID        string    `dynamodbav:"id" json:"id"` // PK
	Name      string    `dynamodbav:"name" json:"name"`
	Email     string    `dynamodbav:"email,omitempty" json:"email,omitempty"`
	Phone     string    `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	Color     string    `dynamodbav:"color,omitempty" json:"color,omitempty"` // hex, used by the dashboard cards
	PhotoURL  string    `dynamodbav:"photo_url,omitempty" json:"photo_url,omitempty"`
	Gender    string    `dynamodbav:"gender,omitempty" json:"gender,omitempty"`
	Active    bool      `dynamodbav:"active" json:"active"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func (s *Store) Create(ctx context.Context, w Worker) (*Worker, error) {
	now := s.nowFunc().UTC()
	w.ID = uuid.NewString()
	w.Name = strings.TrimSpace(w.Name)
	w.CreatedAt, w.UpdatedAt = now, now

	item, err := attributevalue.MarshalMap(w)
	if err != nil {
		return nil, fmt.Errorf("marshal worker: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(id)"),
	}); err != nil {
		return nil, fmt.Errorf("put worker: %w", err)
	}
	return &w, nil
}

// Get returns (nil, nil) when the worker does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Worker, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       workerKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get worker: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var w Worker
	if err := attributevalue.UnmarshalMap(out.Item, &w); err != nil {
		return nil, fmt.Errorf("unmarshal worker: %w", err)
	}
	return &w, nil
}

// List returns workers sorted by name.
func (s *Store) List(ctx context.Context) ([]Worker, error) {
	var all []Worker
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{TableName: &s.tableName})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan workers: %w", err)
		}
		var batch []Worker
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal workers: %w", err)
		}
		all = append(all, batch...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return strings.ToLower(all[i].Name) < strings.ToLower(all[j].Name)
	})
	return all, nil
}

// Update replaces the editable fields of an existing worker.
func (s *Store) Update(ctx context.Context, id string, w Worker) (*Worker, error) {
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              workerKey(id),
		UpdateExpression: awsString("SET #n = :n, email = :e, phone = :p, color = :c, photo_url = :ph, gender = :g, active = :a, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#n": "name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n":  &types.AttributeValueMemberS{Value: strings.TrimSpace(w.Name)},
			":e":  &types.AttributeValueMemberS{Value: w.Email},
			":p":  &types.AttributeValueMemberS{Value: w.Phone},
			":c":  &types.AttributeValueMemberS{Value: w.Color},
			":ph": &types.AttributeValueMemberS{Value: w.PhotoURL},
			":g":  &types.AttributeValueMemberS{Value: w.Gender},
			":a":  &types.AttributeValueMemberBOOL{Value: w.Active},
			":ua": &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("attribute_exists(id)"),
		ReturnValues:        types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update worker: %w", err)
	}
	var updated Worker
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("unmarshal worker: %w", err)
	}
	return &updated, nil
}

// Delete removes a worker. Existing assignments keep the worker's name.
func (s *Store) Delete(ctx context.Context, id string) error {
	out, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:    &s.tableName,
		Key:          workerKey(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("delete worker: %w", err)
	}
	if len(out.Attributes) == 0 {
		return ErrNotFound
	}
	return nil
}

func workerKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func awsString(s string) *string { return &s }
