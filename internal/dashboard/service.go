// Package dashboard assembles orders with their items and production state
// for the workshop screens.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/maisoncleo/atelier-tracker/internal/deadline"
	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/production"
)

const (
	defaultBatchSize  = 10
	defaultBatchDelay = 100 * time.Millisecond
)

var ErrNotFound = errors.New("order not found")

// DeadlineSource yields today's lateness cutoff.
type DeadlineSource interface {
	Deadline(ctx context.Context) (time.Time, error)
}

type Item struct {
	orders.Item
	Production *production.Status `json:"production"`
}

type Order struct {
	orders.Order
	Items          []Item `json:"items"`
	Late           bool   `json:"late"`
	ProductionType string `json:"production_type,omitempty"`
}

type Service struct {
	orders     *orders.Store
	items      *orders.ItemStore
	dispatcher *production.Dispatcher
	deadlines  DeadlineSource
	logger     logrus.FieldLogger

	batchSize  int
	batchDelay time.Duration
}

func NewService(o *orders.Store, items *orders.ItemStore, dispatcher *production.Dispatcher, deadlines DeadlineSource, logger logrus.FieldLogger) *Service {
	return &Service{
		orders:     o,
		items:      items,
		dispatcher: dispatcher,
		deadlines:  deadlines,
		logger:     logger.WithField("module", "dashboard"),
		batchSize:  defaultBatchSize,
		batchDelay: defaultBatchDelay,
	}
}

// ListOrders returns every order, newest first, with items, statuses and the late flag.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	all, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	cutoff, hasCutoff := s.cutoff(ctx)

	out := make([]Order, len(all))
	for start := 0; start < len(all); start += s.batchSize {
		if start > 0 && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.batchDelay):
			}
		}
		end := start + s.batchSize
		if end > len(all) {
			end = len(all)
		}
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				o, err := s.enrich(gctx, all[i])
				if err != nil {
					return fmt.Errorf("enrich order %d: %w", all[i].OrderID, err)
				}
				if hasCutoff {
					o.Late = deadline.IsLate(o.OrderDate, cutoff)
				}
				out[i] = o
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SearchByNumber finds one order by its shop number and names its dominant queue.
func (s *Service) SearchByNumber(ctx context.Context, number string) (*Order, error) {
	o, err := s.orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	enriched, err := s.enrich(ctx, *o)
	if err != nil {
		return nil, err
	}
	if cutoff, ok := s.cutoff(ctx); ok {
		enriched.Late = deadline.IsLate(enriched.OrderDate, cutoff)
	}
	enriched.ProductionType = dominantType(enriched.Items)
	return &enriched, nil
}

// ListByProductionType returns the orders having items in the given queue,
// restricted to those items. An empty queue is first filled from undispatched items.
func (s *Service) ListByProductionType(ctx context.Context, productionType string) ([]Order, error) {
	if !production.ValidType(productionType) {
		return nil, fmt.Errorf("unknown production type %q", productionType)
	}
	queue, err := s.queue(ctx, productionType)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		n, err := s.dispatcher.EnsureDispatched(ctx, productionType)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			if queue, err = s.queue(ctx, productionType); err != nil {
				return nil, err
			}
		}
	}

	byOrder := map[int64][]production.Status{}
	var ids []int64
	for _, st := range queue {
		if _, ok := byOrder[st.OrderID]; !ok {
			ids = append(ids, st.OrderID)
		}
		byOrder[st.OrderID] = append(byOrder[st.OrderID], st)
	}

	cutoff, hasCutoff := s.cutoff(ctx)
	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.orders.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			o = &orders.Order{OrderID: id}
		}
		items, err := s.items.ListByOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		entry := Order{Order: *o, ProductionType: productionType}
		entry.Order.Items = nil
		statuses := byOrder[id]
		for _, it := range items {
			for i := range statuses {
				if statuses[i].LineItemID == it.LineItemID {
					entry.Items = append(entry.Items, Item{Item: it, Production: &statuses[i]})
				}
			}
		}
		if hasCutoff && !o.OrderDate.IsZero() {
			entry.Late = deadline.IsLate(o.OrderDate, cutoff)
		}
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ui, uj := hasUrgent(out[i]), hasUrgent(out[j])
		if ui != uj {
			return ui
		}
		return out[i].OrderDate.Before(out[j].OrderDate)
	})
	return out, nil
}

func (s *Service) queue(ctx context.Context, productionType string) ([]production.Status, error) {
	all, err := s.dispatcher.Statuses().List(ctx)
	if err != nil {
		return nil, err
	}
	var out []production.Status
	for _, st := range all {
		if st.ProductionType == productionType {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Service) enrich(ctx context.Context, o orders.Order) (Order, error) {
	items, err := s.items.ListByOrder(ctx, o.OrderID)
	if err != nil {
		return Order{}, err
	}
	statuses, err := s.dispatcher.Statuses().ListByOrder(ctx, o.OrderID)
	if err != nil {
		return Order{}, err
	}
	byItem := make(map[int64]*production.Status, len(statuses))
	for i := range statuses {
		byItem[statuses[i].LineItemID] = &statuses[i]
	}

	out := Order{Order: o, Items: make([]Item, 0, len(items))}
	out.Order.Items = nil
	for _, it := range items {
		out.Items = append(out.Items, Item{Item: it, Production: byItem[it.LineItemID]})
	}
	return out, nil
}

// cutoff is best effort: without a deadline no order is flagged late.
func (s *Service) cutoff(ctx context.Context) (time.Time, bool) {
	if s.deadlines == nil {
		return time.Time{}, false
	}
	d, err := s.deadlines.Deadline(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("deadline unavailable")
		return time.Time{}, false
	}
	return d, true
}

// dominantType is the most frequent queue among the items; ties go to the
// queue seen first.
func dominantType(items []Item) string {
	counts := map[string]int{}
	var order []string
	for _, it := range items {
		if it.Production == nil {
			continue
		}
		t := it.Production.ProductionType
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	best := ""
	for _, t := range order {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best
}

func hasUrgent(o Order) bool {
	for _, it := range o.Items {
		if it.Production != nil && it.Production.Urgent {
			return true
		}
	}
	return false
}
