package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/maisoncleo/atelier-tracker/internal/aws"
)

// ItemStore encapsulates operations on the order items table.
type ItemStore struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewItemStore(client aws.DynamoDBAPI, tableName string) *ItemStore {
	return &ItemStore{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Insert writes it only if (order_id, line_item_id) is not stored yet.
func (s *ItemStore) Insert(ctx context.Context, it Item) (bool, error) {
	if it.CreatedAt.IsZero() {
		it.CreatedAt = s.nowFunc().UTC()
	}
	item, err := attributevalue.MarshalMap(it)
	if err != nil {
		return false, fmt.Errorf("marshal item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(line_item_id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

// Exists reports whether the line item is already stored.
func (s *ItemStore) Exists(ctx context.Context, orderID, lineItemID int64) (bool, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       itemKey(orderID, lineItemID),
	})
	if err != nil {
		return false, fmt.Errorf("get item: %w", err)
	}
	return len(out.Item) > 0, nil
}

// ListByOrder returns the items of one order ordered by line_item_id.
func (s *ItemStore) ListByOrder(ctx context.Context, orderID int64) ([]Item, error) {
	var all []Item
	p := dyn.NewQueryPaginator(s.client, &dyn.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: awsString("order_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": numberValue(orderID),
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query items: %w", err)
		}
		var batch []Item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		all = append(all, batch...)
	}
	return all, nil
}

// ListAll returns every stored item.
func (s *ItemStore) ListAll(ctx context.Context) ([]Item, error) {
	var all []Item
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{TableName: &s.tableName})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan items: %w", err)
		}
		var batch []Item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		all = append(all, batch...)
	}
	return all, nil
}

// Delete removes one line item. Returns false if it did not exist.
func (s *ItemStore) Delete(ctx context.Context, orderID, lineItemID int64) (bool, error) {
	out, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:    &s.tableName,
		Key:          itemKey(orderID, lineItemID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

// DeleteByOrder removes every item of an order, one write at a time.
func (s *ItemStore) DeleteByOrder(ctx context.Context, orderID int64) (int, error) {
	items, err := s.ListByOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, it := range items {
		ok, err := s.Delete(ctx, it.OrderID, it.LineItemID)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

func itemKey(orderID, lineItemID int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id":     numberValue(orderID),
		"line_item_id": numberValue(lineItemID),
	}
}
