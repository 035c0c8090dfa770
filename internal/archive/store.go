package archive

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
)

// Store encapsulates operations on the archives table.
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

// Put stores a with a new id and archive time.
func (s *Store) Put(ctx context.Context, a Archive) (*Archive, error) {
	a.ArchiveID = uuid.NewString()
	a.ArchivedAt = s.nowFunc().UTC()
	a.ItemsCount = len(a.Items)
	a.StatusesCount = len(a.Statuses)

	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return nil, fmt.Errorf("marshal archive: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(archive_id)"),
	}); err != nil {
		return nil, fmt.Errorf("put archive: %w", err)
	}
	return &a, nil
}

func (s *Store) Get(ctx context.Context, archiveID string) (*Archive, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"archive_id": &types.AttributeValueMemberS{Value: archiveID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var a Archive
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal archive: %w", err)
	}
	return &a, nil
}

// List returns all archives, most recent first.
func (s *Store) List(ctx context.Context) ([]Archive, error) {
	var all []Archive
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{TableName: &s.tableName})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan archives: %w", err)
		}
		var batch []Archive
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal archives: %w", err)
		}
		all = append(all, batch...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ArchivedAt.After(all[j].ArchivedAt) })
	return all, nil
}

func awsString(s string) *string { return &s }
