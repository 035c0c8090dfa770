package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/maisoncleo/atelier-tracker/internal/aws"
)

// ErrNotFound is returned when an order does not exist.
var ErrNotFound = errors.New("order not found")

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Insert writes o only if no order with the same order_id exists.
// Returns (false, nil) when the order is already stored; the stored copy is left untouched.
func (s *Store) Insert(ctx context.Context, o Order) (bool, error) {
	now := s.nowFunc().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return false, fmt.Errorf("marshal order: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("put order: %w", err)
	}
	return true, nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID int64) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       orderKey(orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// BackfillItems sets the items snapshot of an existing order that has none yet.
// Returns false when the order is missing or already has items.
func (s *Store) BackfillItems(ctx context.Context, orderID int64, items []Item) (bool, error) {
	if len(items) == 0 {
		return false, nil
	}
	av, err := attributevalue.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("marshal items: %w", err)
	}
	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(orderID),
		UpdateExpression: awsString("SET #items = :items, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#items": "items",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":items": av,
			":ua":    timeValue(s.nowFunc()),
		},
		ConditionExpression: awsString("attribute_exists(order_id) AND attribute_not_exists(#items)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("backfill items: %w", err)
	}
	return true, nil
}

// UpdateNote replaces the customer note, the only field editable after creation.
func (s *Store) UpdateNote(ctx context.Context, orderID int64, note string) (*Order, error) {
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(orderID),
		UpdateExpression: awsString("SET customer_note = :note, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":note": &types.AttributeValueMemberS{Value: note},
			":ua":   timeValue(s.nowFunc()),
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
		ReturnValues:        types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update note: %w", err)
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Attributes, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// Delete removes an order. Returns false if it did not exist.
func (s *Store) Delete(ctx context.Context, orderID int64) (bool, error) {
	out, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:    &s.tableName,
		Key:          orderKey(orderID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

// List returns every stored order, most recent order_date first.
func (s *Store) List(ctx context.Context) ([]Order, error) {
	var all []Order
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{TableName: &s.tableName})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		var batch []Order
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		all = append(all, batch...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].OrderDate.After(all[j].OrderDate)
	})
	return all, nil
}

// LatestOrderDate returns the order_date of the most recent stored order.
// ok is false when the table is empty.
func (s *Store) LatestOrderDate(ctx context.Context) (latest time.Time, ok bool, err error) {
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{
		TableName:            &s.tableName,
		ProjectionExpression: awsString("order_date"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("scan order dates: %w", err)
		}
		for _, it := range page.Items {
			var row struct {
				OrderDate time.Time `dynamodbav:"order_date"`
			}
			if err := attributevalue.UnmarshalMap(it, &row); err != nil {
				return time.Time{}, false, fmt.Errorf("unmarshal order date: %w", err)
			}
			if !ok || row.OrderDate.After(latest) {
				latest, ok = row.OrderDate, true
			}
		}
	}
	return latest, ok, nil
}

// FindByNumber looks an order up by its display number; a leading '#' is ignored.
func (s *Store) FindByNumber(ctx context.Context, number string) (*Order, error) {
	want := strings.TrimPrefix(strings.TrimSpace(number), "#")
	if want == "" {
		return nil, nil
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if strings.TrimPrefix(all[i].OrderNumber, "#") == want {
			return &all[i], nil
		}
	}
	return nil, nil
}

func orderKey(orderID int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": numberValue(orderID),
	}
}

func numberValue(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func timeValue(t time.Time) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(time.RFC3339Nano)}
}

func isConditionFailed(err error) bool {
	var cc *types.ConditionalCheckFailedException
	return errors.As(err, &cc)
}

func awsString(s string) *string { return &s }
