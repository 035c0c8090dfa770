package archive

import (
	"time"

	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/production"
)

// Archive is an immutable snapshot of one order taken right before its deletion.
type Archive struct {
	ArchiveID     string              `dynamodbav:"archive_id" json:"archive_id"` // PK
	OrderID       int64               `dynamodbav:"order_id" json:"order_id"`
	OrderNumber   string              `dynamodbav:"order_number" json:"order_number"`
	Order         orders.Order        `dynamodbav:"order" json:"order"`
	Items         []orders.Item       `dynamodbav:"items" json:"items"`
	Statuses      []production.Status `dynamodbav:"statuses" json:"statuses"`
	ItemsCount    int                 `dynamodbav:"items_count" json:"items_count"`
	StatusesCount int                 `dynamodbav:"statuses_count" json:"statuses_count"`
	ArchivedAt    time.Time           `dynamodbav:"archived_at" json:"archived_at"`
}

// DeleteResult counts the rows removed by a cascade delete.
type DeleteResult struct {
	OrderDeleted       bool `json:"orderDeleted"`
	ItemsDeleted       int  `json:"itemsDeleted"`
	StatusesDeleted    int  `json:"statusesDeleted"`
	AssignmentsDeleted int  `json:"assignmentsDeleted"`
}

// Period groups statistics by ISO week, month or year.
type Period string

const (
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

func (p Period) Valid() bool {
	return p == Week || p == Month || p == Year
}

// PeriodStats counts completed items archived within one period.
type PeriodStats struct {
	Period   string         `json:"period"`
	Total    int            `json:"total"`
	ByType   map[string]int `json:"byType"`
	ByWorker map[string]int `json:"byWorker"`
}
