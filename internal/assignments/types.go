package assignments

import (
	"time"

	"github.com/maisoncleo/atelier-tracker/internal/production"
)

// Assignment binds one line item to one tricoteuse. The item key is resolved once
// when the assignment is created and stored alongside the canonical article_id.
type Assignment struct {
	ArticleID      string    `dynamodbav:"article_id" json:"article_id"` // PK, "<order_id>_<line_item_id>"
	ID             string    `dynamodbav:"id" json:"id"`
	OrderID        int64     `dynamodbav:"order_id" json:"order_id"`
	LineItemID     int64     `dynamodbav:"line_item_id" json:"line_item_id"`
	TricoteuseID   string    `dynamodbav:"tricoteuse_id,omitempty" json:"tricoteuse_id,omitempty"`
	TricoteuseName string    `dynamodbav:"tricoteuse_name,omitempty" json:"tricoteuse_name,omitempty"`
	Status         string    `dynamodbav:"status" json:"status"`
	Urgent         bool      `dynamodbav:"urgent" json:"urgent"`
	AssignedAt     time.Time `dynamodbav:"assigned_at" json:"assigned_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

func (a Assignment) Key() production.Key {
	return production.Key{OrderID: a.OrderID, LineItemID: a.LineItemID}
}

// ReconcileResult counts the repairs made by one reconciliation pass.
type ReconcileResult struct {
	SyncedCount  int `json:"syncedCount"`
	RemovedCount int `json:"removedCount"`
}

// ResetResult describes a full production reset.
type ResetResult struct {
	ProductionModifiedCount int            `json:"productionModifiedCount"`
	AssignmentsDeletedCount int            `json:"assignmentsDeletedCount"`
	StatusCounts            map[string]int `json:"statusCounts"`
	RemainingAssignments    int            `json:"remainingAssignments"`
}
