package production

import (
	"fmt"
	"time"
)

// Workflow states of an item.
const (
	Todo       = "a_faire"
	InProgress = "en_cours"
	Paused     = "en_pause"
	Done       = "termine"
)

// Production queues.
const (
	Couture = "couture"
	Maille  = "maille"
)

func ValidStatus(s string) bool {
	switch s {
	case Todo, InProgress, Paused, Done:
		return true
	}
	return false
}

func ValidType(t string) bool {
	return t == Couture || t == Maille
}

// Key identifies one line item of one order.
type Key struct {
	OrderID    int64 `json:"order_id"`
	LineItemID int64 `json:"line_item_id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d_%d", k.OrderID, k.LineItemID)
}

// Status is an item's position in the production workflow.
type Status struct {
	OrderID        int64     `dynamodbav:"order_id" json:"order_id"`         // PK
	LineItemID     int64     `dynamodbav:"line_item_id" json:"line_item_id"` // SK
	Status         string    `dynamodbav:"status" json:"status"`
	ProductionType string    `dynamodbav:"production_type" json:"production_type"`
	AssignedTo     *string   `dynamodbav:"assigned_to" json:"assigned_to"`
	Urgent         bool      `dynamodbav:"urgent" json:"urgent"`
	Notes          *string   `dynamodbav:"notes" json:"notes"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

func (s Status) Key() Key {
	return Key{OrderID: s.OrderID, LineItemID: s.LineItemID}
}
