package production

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/maisoncleo/atelier-tracker/internal/aws"
)

// ErrNotFound is returned when an item has no production status.
var ErrNotFound = errors.New("production status not found")

// Store encapsulates operations on the production status table.
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

// field is one attribute assignment of an update.
type field struct {
	name  string
	value types.AttributeValue
}

// Insert writes st unconditionally. Callers only insert for keys known to lack a status.
func (s *Store) Insert(ctx context.Context, st Status) (*Status, error) {
	now := s.nowFunc().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now
	item, err := attributevalue.MarshalMap(st)
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return nil, fmt.Errorf("put status: %w", err)
	}
	return &st, nil
}

// Get returns (nil, nil) when the item has no status.
func (s *Store) Get(ctx context.Context, key Key) (*Status, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       statusKey(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var st Status
	if err := attributevalue.UnmarshalMap(out.Item, &st); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}
	return &st, nil
}

// SetType changes the production queue of an existing status.
func (s *Store) SetType(ctx context.Context, key Key, productionType string) (*Status, error) {
	return s.update(ctx, key, true, []field{
		{"production_type", str(productionType)},
	})
}

// SetState updates status, notes and optionally urgent of an existing status.
// A missing note is stored as null. Moving back to a_faire clears the assignee.
func (s *Store) SetState(ctx context.Context, key Key, status string, notes *string, urgent *bool) (*Status, error) {
	fields := []field{
		{"status", str(status)},
		{"notes", nullableStr(notes)},
	}
	if urgent != nil {
		fields = append(fields, field{"urgent", &types.AttributeValueMemberBOOL{Value: *urgent}})
	}
	if status == Todo {
		fields = append(fields, field{"assigned_to", null()})
	}
	return s.update(ctx, key, true, fields)
}

// SetAssignee upserts status and assigned_to. A nil assignee is stored as null.
func (s *Store) SetAssignee(ctx context.Context, key Key, status string, assignee *string, defaultType string) (*Status, error) {
	return s.upsert(ctx, key, defaultType, []field{
		{"status", str(status)},
		{"assigned_to", nullableStr(assignee)},
	})
}

// SetUrgent upserts the urgent flag.
func (s *Store) SetUrgent(ctx context.Context, key Key, urgent bool, defaultType string) (*Status, error) {
	return s.upsert(ctx, key, defaultType, []field{
		{"urgent", &types.AttributeValueMemberBOOL{Value: urgent}},
	})
}

// List returns every status ordered by (order_id, line_item_id).
func (s *Store) List(ctx context.Context) ([]Status, error) {
	var all []Status
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{TableName: &s.tableName})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan statuses: %w", err)
		}
		var batch []Status
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal statuses: %w", err)
		}
		all = append(all, batch...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].OrderID != all[j].OrderID {
			return all[i].OrderID < all[j].OrderID
		}
		return all[i].LineItemID < all[j].LineItemID
	})
	return all, nil
}

// ListByOrder returns the statuses of one order.
func (s *Store) ListByOrder(ctx context.Context, orderID int64) ([]Status, error) {
	var all []Status
	p := dyn.NewQueryPaginator(s.client, &dyn.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: awsString("order_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": num(orderID),
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query statuses: %w", err)
		}
		var batch []Status
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal statuses: %w", err)
		}
		all = append(all, batch...)
	}
	return all, nil
}

// ListByLineItem returns every status whose line_item_id matches, across orders.
func (s *Store) ListByLineItem(ctx context.Context, lineItemID int64) ([]Status, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Status
	for _, st := range all {
		if st.LineItemID == lineItemID {
			out = append(out, st)
		}
	}
	return out, nil
}

// Delete removes one status. Returns false if it did not exist.
func (s *Store) Delete(ctx context.Context, key Key) (bool, error) {
	out, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:    &s.tableName,
		Key:          statusKey(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("delete status: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

// DeleteByOrder removes every status of an order.
func (s *Store) DeleteByOrder(ctx context.Context, orderID int64) (int, error) {
	list, err := s.ListByOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, st := range list {
		ok, err := s.Delete(ctx, st.Key())
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

// ResetAll moves every status back to a_faire, unassigned, without notes.
// It returns how many rows were rewritten and the status distribution afterwards.
func (s *Store) ResetAll(ctx context.Context) (int, map[string]int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return 0, nil, err
	}
	modified := 0
	for _, st := range all {
		if _, err := s.update(ctx, st.Key(), true, []field{
			{"status", str(Todo)},
			{"assigned_to", null()},
			{"notes", null()},
		}); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return modified, nil, err
		}
		modified++
	}

	after, err := s.List(ctx)
	if err != nil {
		return modified, nil, err
	}
	counts := map[string]int{}
	for _, st := range after {
		counts[st.Status]++
	}
	return modified, counts, nil
}

func (s *Store) upsert(ctx context.Context, key Key, defaultType string, fields []field) (*Status, error) {
	existing, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if defaultType == "" {
			defaultType = Couture
		}
		defaults := []field{
			{"status", str(Todo)},
			{"production_type", str(defaultType)},
			{"assigned_to", null()},
			{"urgent", &types.AttributeValueMemberBOOL{Value: false}},
			{"notes", null()},
			{"created_at", timeValue(s.nowFunc())},
		}
		fields = mergeFields(defaults, fields)
	}
	return s.update(ctx, key, false, fields)
}

func (s *Store) update(ctx context.Context, key Key, mustExist bool, fields []field) (*Status, error) {
	fields = append(fields, field{"updated_at", timeValue(s.nowFunc())})
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	expr := "SET "
	for i, f := range fields {
		n := "#f" + strconv.Itoa(i)
		v := ":v" + strconv.Itoa(i)
		names[n] = f.name
		values[v] = f.value
		if i > 0 {
			expr += ", "
		}
		expr += n + " = " + v
	}
	input := &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       statusKey(key),
		UpdateExpression:          &expr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if mustExist {
		input.ConditionExpression = awsString("attribute_exists(line_item_id)")
	}
	out, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	var st Status
	if err := attributevalue.UnmarshalMap(out.Attributes, &st); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}
	return &st, nil
}

// mergeFields returns base overridden by overrides, keeping base order.
func mergeFields(base, overrides []field) []field {
	out := make([]field, 0, len(base)+len(overrides))
	seen := map[string]bool{}
	for _, o := range overrides {
		seen[o.name] = true
	}
	for _, b := range base {
		if !seen[b.name] {
			out = append(out, b)
		}
	}
	return append(out, overrides...)
}

func statusKey(key Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id":     num(key.OrderID),
		"line_item_id": num(key.LineItemID),
	}
}

func num(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func str(s string) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: s}
}

func null() *types.AttributeValueMemberNULL {
	return &types.AttributeValueMemberNULL{Value: true}
}

func nullableStr(s *string) types.AttributeValue {
	if s == nil {
		return null()
	}
	return str(*s)
}

func timeValue(t time.Time) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(time.RFC3339Nano)}
}

func awsString(s string) *string { return &s }
