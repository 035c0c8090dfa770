package deadline

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/maisoncleo/atelier-tracker/internal/aws"
)

// Config is one saved deadline configuration. Rows are never updated; the
// current configuration is the most recently written one.
type Config struct {
	ID             string          `dynamodbav:"id" json:"id"`
	JoursDelai     int             `dynamodbav:"jours_delai" json:"joursDelai"`
	JoursOuvrables map[string]bool `dynamodbav:"jours_ouvrables" json:"joursOuvrables"`
	DateLimite     string          `dynamodbav:"date_limite" json:"dateLimite"`
	UpdatedAt      time.Time       `dynamodbav:"updated_at" json:"updatedAt"`
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

// Append writes cfg as a new row with a fresh id and timestamp.
func (s *Store) Append(ctx context.Context, cfg Config) (*Config, error) {
	cfg.ID = uuid.NewString()
	cfg.UpdatedAt = s.nowFunc().UTC()
	item, err := attributevalue.MarshalMap(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal delai config: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(id)"),
	}); err != nil {
		return nil, fmt.Errorf("put delai config: %w", err)
	}
	return &cfg, nil
}

// Current returns the latest row, or (nil, nil) when nothing was saved yet.
func (s *Store) Current(ctx context.Context) (*Config, error) {
	var latest *Config
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{TableName: &s.tableName})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan delai config: %w", err)
		}
		var batch []Config
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal delai config: %w", err)
		}
		for i := range batch {
			if latest == nil || batch[i].UpdatedAt.After(latest.UpdatedAt) {
				c := batch[i]
				latest = &c
			}
		}
	}
	return latest, nil
}

func awsString(s string) *string { return &s }
