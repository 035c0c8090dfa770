// Package dynamotest provides an in-memory DynamoDB double for store tests.
//
// It understands the small expression grammar the stores emit:
//
//	SET a = :a, #b = :b REMOVE c, d
//	attribute_exists(x) / attribute_not_exists(x) joined with AND
//	pk = :v as a Query key condition
//
// Anything else is reported as an error so tests fail loudly instead of
// silently diverging from the real service.
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type table struct {
	pk    string
	sk    string
	items map[string]map[string]types.AttributeValue
}

// Fake is an in-memory DynamoDB implementing aws.DynamoDBAPI.
type Fake struct {
	mu       sync.Mutex
	tables   map[string]*table
	failures map[string]error
	calls    map[string]int
}

func New() *Fake {
	return &Fake{
		tables:   map[string]*table{},
		failures: map[string]error{},
		calls:    map[string]int{},
	}
}

// CreateTable registers a table with its key schema. sk may be empty.
func (f *Fake) CreateTable(name, pk, sk string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = &table{pk: pk, sk: sk, items: map[string]map[string]types.AttributeValue{}}
}

// FailNext makes the next call of op ("PutItem", "Query", ...) on tableName return err.
func (f *Fake) FailNext(op, tableName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op+":"+tableName] = err
}

// Calls returns how many times op was invoked on tableName.
func (f *Fake) Calls(op, tableName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op+":"+tableName]
}

// Count returns the number of items stored in tableName.
func (f *Fake) Count(tableName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[tableName]
	if !ok {
		return 0
	}
	return len(t.items)
}

// Items returns copies of every item of tableName in key order.
func (f *Fake) Items(tableName string) []map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[tableName]
	if !ok {
		return nil
	}
	return t.sorted()
}

func (f *Fake) enter(op string, tableName *string) (*table, error) {
	if tableName == nil {
		return nil, errors.New("dynamotest: missing table name")
	}
	name := *tableName
	f.calls[op+":"+name]++
	if err, ok := f.failures[op+":"+name]; ok {
		delete(f.failures, op+":"+name)
		return nil, err
	}
	t, ok := f.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: strPtr("table not found: " + name)}
	}
	return t, nil
}

func (f *Fake) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("GetItem", in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(item)}, nil
}

func (f *Fake) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("PutItem", in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Item)
	if err != nil {
		return nil, err
	}
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, t.items[k]); err != nil {
		return nil, err
	}
	t.items[k] = clone(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (f *Fake) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("UpdateItem", in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	existing := t.items[k]
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, existing); err != nil {
		return nil, err
	}
	var item map[string]types.AttributeValue
	if existing != nil {
		item = clone(existing)
	} else {
		item = clone(in.Key)
	}
	if in.UpdateExpression == nil {
		return nil, errors.New("dynamotest: missing update expression")
	}
	if err := applyUpdate(*in.UpdateExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, item); err != nil {
		return nil, err
	}
	t.items[k] = item
	out := &dyn.UpdateItemOutput{}
	if in.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = clone(item)
	}
	return out, nil
}

func (f *Fake) DeleteItem(ctx context.Context, in *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("DeleteItem", in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	existing := t.items[k]
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, existing); err != nil {
		return nil, err
	}
	delete(t.items, k)
	out := &dyn.DeleteItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld && existing != nil {
		out.Attributes = existing
	}
	return out, nil
}

func (f *Fake) Query(ctx context.Context, in *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("Query", in.TableName)
	if err != nil {
		return nil, err
	}
	if in.IndexName != nil || in.FilterExpression != nil {
		return nil, errors.New("dynamotest: indexes and filter expressions are not supported")
	}
	if in.KeyConditionExpression == nil {
		return nil, errors.New("dynamotest: missing key condition")
	}
	parts := strings.Split(*in.KeyConditionExpression, "=")
	if len(parts) != 2 {
		return nil, fmt.Errorf("dynamotest: unsupported key condition %q", *in.KeyConditionExpression)
	}
	attr := resolveName(strings.TrimSpace(parts[0]), in.ExpressionAttributeNames)
	if attr != t.pk {
		return nil, fmt.Errorf("dynamotest: key condition must target %s", t.pk)
	}
	want, ok := in.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
	if !ok {
		return nil, errors.New("dynamotest: missing key condition value")
	}
	wantKey := scalar(want)
	var out []map[string]types.AttributeValue
	for _, item := range t.sorted() {
		if scalar(item[t.pk]) == wantKey {
			out = append(out, item)
		}
	}
	return &dyn.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func (f *Fake) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("Scan", in.TableName)
	if err != nil {
		return nil, err
	}
	if in.FilterExpression != nil {
		return nil, errors.New("dynamotest: filter expressions are not supported")
	}
	items := t.sorted()
	return &dyn.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (t *table) keyOf(item map[string]types.AttributeValue) (string, error) {
	pk, ok := item[t.pk]
	if !ok {
		return "", fmt.Errorf("dynamotest: missing partition key %s", t.pk)
	}
	k := scalar(pk)
	if t.sk != "" {
		sk, ok := item[t.sk]
		if !ok {
			return "", fmt.Errorf("dynamotest: missing sort key %s", t.sk)
		}
		k += "|" + scalar(sk)
	}
	return k, nil
}

func (t *table) sorted() []map[string]types.AttributeValue {
	out := make([]map[string]types.AttributeValue, 0, len(t.items))
	for _, item := range t.items {
		out = append(out, clone(item))
	}
	sort.Slice(out, func(i, j int) bool {
		if c := compare(out[i][t.pk], out[j][t.pk]); c != 0 {
			return c < 0
		}
		if t.sk == "" {
			return false
		}
		return compare(out[i][t.sk], out[j][t.sk]) < 0
	})
	return out
}

func checkCondition(expr *string, names map[string]string, existing map[string]types.AttributeValue) error {
	if expr == nil || strings.TrimSpace(*expr) == "" {
		return nil
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.TrimSpace(clause)
		var fn, arg string
		if open := strings.Index(clause, "("); open > 0 && strings.HasSuffix(clause, ")") {
			fn = clause[:open]
			arg = resolveName(strings.TrimSpace(clause[open+1:len(clause)-1]), names)
		}
		_, present := existing[arg]
		switch fn {
		case "attribute_exists":
			if !present {
				return &types.ConditionalCheckFailedException{Message: strPtr(clause)}
			}
		case "attribute_not_exists":
			if present {
				return &types.ConditionalCheckFailedException{Message: strPtr(clause)}
			}
		default:
			return fmt.Errorf("dynamotest: unsupported condition %q", clause)
		}
	}
	return nil
}

func applyUpdate(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) error {
	expr = strings.TrimSpace(expr)
	var setPart, removePart string
	if idx := strings.Index(expr, "REMOVE "); idx >= 0 {
		removePart = expr[idx+len("REMOVE "):]
		expr = strings.TrimSpace(expr[:idx])
	}
	if strings.HasPrefix(expr, "SET ") {
		setPart = expr[len("SET "):]
	} else if expr != "" {
		return fmt.Errorf("dynamotest: unsupported update expression %q", expr)
	}
	if setPart != "" {
		for _, assign := range strings.Split(setPart, ",") {
			kv := strings.SplitN(assign, "=", 2)
			if len(kv) != 2 {
				return fmt.Errorf("dynamotest: bad assignment %q", assign)
			}
			attr := resolveName(strings.TrimSpace(kv[0]), names)
			v, ok := values[strings.TrimSpace(kv[1])]
			if !ok {
				return fmt.Errorf("dynamotest: missing value %s", strings.TrimSpace(kv[1]))
			}
			item[attr] = v
		}
	}
	if removePart != "" {
		for _, attr := range strings.Split(removePart, ",") {
			delete(item, resolveName(strings.TrimSpace(attr), names))
		}
	}
	return nil
}

func resolveName(s string, names map[string]string) string {
	if strings.HasPrefix(s, "#") {
		if n, ok := names[s]; ok {
			return n
		}
	}
	return s
}

func scalar(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value
	case *types.AttributeValueMemberN:
		return "N:" + v.Value
	case *types.AttributeValueMemberBOOL:
		return "B:" + strconv.FormatBool(v.Value)
	default:
		return fmt.Sprintf("%T", av)
	}
}

func compare(a, b types.AttributeValue) int {
	an, aok := a.(*types.AttributeValueMemberN)
	bn, bok := b.(*types.AttributeValueMemberN)
	if aok && bok {
		af, _ := strconv.ParseFloat(an.Value, 64)
		bf, _ := strconv.ParseFloat(bn.Value, 64)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(scalar(a), scalar(b))
}

func clone(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func strPtr(s string) *string { return &s }
