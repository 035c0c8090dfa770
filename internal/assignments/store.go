package assignments

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/maisoncleo/atelier-tracker/internal/aws"
	"github.com/maisoncleo/atelier-tracker/internal/production"
)

// Store encapsulates operations on the assignments table.
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

// Upsert writes a by article_id, keeping the record id and assigned_at of an existing row.
func (s *Store) Upsert(ctx context.Context, a Assignment) (*Assignment, error) {
	a.ArticleID = a.Key().String()
	existing, err := s.Get(ctx, a.Key())
	if err != nil {
		return nil, err
	}
	now := s.nowFunc().UTC()
	if existing != nil {
		a.ID = existing.ID
		a.AssignedAt = existing.AssignedAt
	} else {
		a.ID = uuid.NewString()
		a.AssignedAt = now
	}
	a.UpdatedAt = now

	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return nil, fmt.Errorf("marshal assignment: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return nil, fmt.Errorf("put assignment: %w", err)
	}
	return &a, nil
}

// Get returns (nil, nil) when the item has no assignment.
func (s *Store) Get(ctx context.Context, key production.Key) (*Assignment, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       articleKey(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var a Assignment
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal assignment: %w", err)
	}
	return &a, nil
}

// GetByID finds an assignment by its record id.
func (s *Store) GetByID(ctx context.Context, id string) (*Assignment, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, nil
}

// SetStatus mirrors a production status onto the assignment, creating it when absent.
func (s *Store) SetStatus(ctx context.Context, key production.Key, status string, tricoteuseName string) (*Assignment, error) {
	existing, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return s.Upsert(ctx, Assignment{
			OrderID:        key.OrderID,
			LineItemID:     key.LineItemID,
			TricoteuseName: tricoteuseName,
			Status:         status,
		})
	}
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              articleKey(key),
		UpdateExpression: awsString("SET #s = :s, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":  &types.AttributeValueMemberS{Value: status},
			":ua": &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("update assignment status: %w", err)
	}
	var a Assignment
	if err := attributevalue.UnmarshalMap(out.Attributes, &a); err != nil {
		return nil, fmt.Errorf("unmarshal assignment: %w", err)
	}
	return &a, nil
}

// Delete removes the assignment of an item. Returns false if there was none.
func (s *Store) Delete(ctx context.Context, key production.Key) (bool, error) {
	out, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:    &s.tableName,
		Key:          articleKey(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

// List returns every assignment ordered by article id.
func (s *Store) List(ctx context.Context) ([]Assignment, error) {
	var all []Assignment
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{TableName: &s.tableName})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan assignments: %w", err)
		}
		var batch []Assignment
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal assignments: %w", err)
		}
		all = append(all, batch...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ArticleID < all[j].ArticleID })
	return all, nil
}

// ListByLineItem returns the assignments of a bare line item id, across orders.
func (s *Store) ListByLineItem(ctx context.Context, lineItemID int64) ([]Assignment, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Assignment
	for _, a := range all {
		if a.LineItemID == lineItemID {
			out = append(out, a)
		}
	}
	return out, nil
}

func articleKey(key production.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"article_id": &types.AttributeValueMemberS{Value: key.String()},
	}
}

func awsString(s string) *string { return &s }
