package production

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maisoncleo/atelier-tracker/internal/orders"
)

var ErrInvalidType = errors.New("invalid production type")

// ItemSource lists synced line items.
type ItemSource interface {
	ListAll(ctx context.Context) ([]orders.Item, error)
	ListByOrder(ctx context.Context, orderID int64) ([]orders.Item, error)
}

// Dispatcher decides which queue an item belongs to and records the decision.
type Dispatcher struct {
	statuses *Store
	items    ItemSource
	logger   logrus.FieldLogger
}

func NewDispatcher(statuses *Store, items ItemSource, logger logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		statuses: statuses,
		items:    items,
		logger:   logger.WithField("module", "production"),
	}
}

// Statuses exposes the underlying store to read paths.
func (d *Dispatcher) Statuses() *Store { return d.statuses }

// Dispatch classifies the item and inserts its initial a_faire status.
// It is a plain insert: callers invoke it only for items lacking a status.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID, lineItemID int64, productName string) (*Status, error) {
	return d.DispatchAs(ctx, Key{OrderID: orderID, LineItemID: lineItemID}, Classify(productName), nil)
}

// DispatchAs inserts a status with an explicit queue and optional assignee.
func (d *Dispatcher) DispatchAs(ctx context.Context, key Key, productionType string, assignee *string) (*Status, error) {
	if !ValidType(productionType) {
		return nil, fmt.Errorf("dispatch %s: %w: %q", key, ErrInvalidType, productionType)
	}
	st, err := d.statuses.Insert(ctx, Status{
		OrderID:        key.OrderID,
		LineItemID:     key.LineItemID,
		Status:         Todo,
		ProductionType: productionType,
		AssignedTo:     assignee,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", key, err)
	}
	d.logger.WithFields(logrus.Fields{"article": key.String(), "type": productionType}).Debug("item dispatched")
	return st, nil
}

// Redispatch moves an existing status to another queue, keeping status and assignee.
func (d *Dispatcher) Redispatch(ctx context.Context, key Key, newType string) (*Status, error) {
	if !ValidType(newType) {
		return nil, fmt.Errorf("redispatch %s: %w: %q", key, ErrInvalidType, newType)
	}
	return d.statuses.SetType(ctx, key, newType)
}

// SetUrgent flags an item, creating its status when absent.
func (d *Dispatcher) SetUrgent(ctx context.Context, key Key, urgent bool) (*Status, error) {
	t, err := d.TypeFor(ctx, key)
	if err != nil {
		return nil, err
	}
	return d.statuses.SetUrgent(ctx, key, urgent, t)
}

// TypeFor returns the queue a status created for key should land in: the
// existing type, else the classification of the item's product name, else couture.
func (d *Dispatcher) TypeFor(ctx context.Context, key Key) (string, error) {
	existing, err := d.statuses.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ProductionType, nil
	}
	items, err := d.items.ListByOrder(ctx, key.OrderID)
	if err != nil {
		return "", err
	}
	for _, it := range items {
		if it.LineItemID == key.LineItemID {
			return Classify(it.ProductName), nil
		}
	}
	return Couture, nil
}

// SweepUndispatched dispatches every stored item that has no status at all.
// It is idempotent and heals items missed by a partially failed sync.
func (d *Dispatcher) SweepUndispatched(ctx context.Context) (int, error) {
	return d.dispatchMissing(ctx, "")
}

// EnsureDispatched dispatches the undispatched items that classify into productionType.
// Read paths call it when a queue is empty.
func (d *Dispatcher) EnsureDispatched(ctx context.Context, productionType string) (int, error) {
	if !ValidType(productionType) {
		return 0, fmt.Errorf("ensure dispatched: invalid production type %q", productionType)
	}
	return d.dispatchMissing(ctx, productionType)
}

func (d *Dispatcher) dispatchMissing(ctx context.Context, onlyType string) (int, error) {
	items, err := d.items.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list items: %w", err)
	}
	statuses, err := d.statuses.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list statuses: %w", err)
	}
	known := make(map[Key]struct{}, len(statuses))
	for _, st := range statuses {
		known[st.Key()] = struct{}{}
	}

	dispatched := 0
	for _, it := range items {
		key := Key{OrderID: it.OrderID, LineItemID: it.LineItemID}
		if _, ok := known[key]; ok {
			continue
		}
		t := Classify(it.ProductName)
		if onlyType != "" && t != onlyType {
			continue
		}
		if _, err := d.DispatchAs(ctx, key, t, nil); err != nil {
			return dispatched, err
		}
		known[key] = struct{}{}
		dispatched++
	}
	if dispatched > 0 {
		d.logger.WithFields(logrus.Fields{"count": dispatched, "type": onlyType}).Info("dispatched missing items")
	}
	return dispatched, nil
}
