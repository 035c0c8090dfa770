// Package archive deletes orders with everything hanging off them, optionally
// keeping a snapshot first, and reports on archived production.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maisoncleo/atelier-tracker/internal/assignments"
	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/production"
)

var ErrNotFound = errors.New("order not found")

// Service performs cascade deletes and archives. Writes are ordered and not
// transactional: a failure midway leaves rows that the dispatch sweep and
// assignment reconciliation clean up.
type Service struct {
	orders      *orders.Store
	items       *orders.ItemStore
	statuses    *production.Store
	assignments *assignments.Store
	archives    *Store
	logger      logrus.FieldLogger
}

func NewService(o *orders.Store, items *orders.ItemStore, statuses *production.Store, a *assignments.Store, archives *Store, logger logrus.FieldLogger) *Service {
	return &Service{
		orders:      o,
		items:       items,
		statuses:    statuses,
		assignments: a,
		archives:    archives,
		logger:      logger.WithField("module", "archive"),
	}
}

func (s *Service) Archives() *Store { return s.archives }

// DeleteOrder removes the order, its items, their statuses and assignments.
// It returns ErrNotFound when there was nothing to delete.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) (DeleteResult, error) {
	var res DeleteResult

	items, err := s.items.ListByOrder(ctx, orderID)
	if err != nil {
		return res, err
	}
	statuses, err := s.statuses.ListByOrder(ctx, orderID)
	if err != nil {
		return res, err
	}
	keys := map[production.Key]struct{}{}
	for _, it := range items {
		keys[production.Key{OrderID: it.OrderID, LineItemID: it.LineItemID}] = struct{}{}
	}
	for _, st := range statuses {
		keys[st.Key()] = struct{}{}
	}

	for key := range keys {
		deleted, err := s.assignments.Delete(ctx, key)
		if err != nil {
			return res, err
		}
		if deleted {
			res.AssignmentsDeleted++
		}
	}
	if res.StatusesDeleted, err = s.statuses.DeleteByOrder(ctx, orderID); err != nil {
		return res, err
	}
	if res.ItemsDeleted, err = s.items.DeleteByOrder(ctx, orderID); err != nil {
		return res, err
	}
	if res.OrderDeleted, err = s.orders.Delete(ctx, orderID); err != nil {
		return res, err
	}

	if !res.OrderDeleted && res.ItemsDeleted == 0 && res.StatusesDeleted == 0 {
		return res, ErrNotFound
	}
	s.logger.WithFields(logrus.Fields{
		"order_id":    orderID,
		"items":       res.ItemsDeleted,
		"statuses":    res.StatusesDeleted,
		"assignments": res.AssignmentsDeleted,
	}).Info("order deleted")
	return res, nil
}

// ArchiveOrder snapshots the order with its items and statuses, then deletes it.
// The snapshot is written before anything is removed.
func (s *Service) ArchiveOrder(ctx context.Context, orderID int64) (*Archive, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	items, err := s.items.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	statuses, err := s.statuses.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	a, err := s.archives.Put(ctx, Archive{
		OrderID:     o.OrderID,
		OrderNumber: o.OrderNumber,
		Order:       *o,
		Items:       items,
		Statuses:    statuses,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.DeleteOrder(ctx, orderID); err != nil {
		return a, fmt.Errorf("archive %s stored, delete failed: %w", a.ArchiveID, err)
	}
	s.logger.WithFields(logrus.Fields{"order_id": orderID, "archive_id": a.ArchiveID}).Info("order archived")
	return a, nil
}
