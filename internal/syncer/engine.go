// Package syncer pulls orders from the shop into the local stores. Stored
// orders and items are never rewritten; a sync only adds what is missing.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maisoncleo/atelier-tracker/internal/archive"
	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/production"
	"github.com/maisoncleo/atelier-tracker/internal/woocommerce"
)

var (
	activeStatuses     = []string{orders.StatusProcessing, orders.StatusCompleted}
	failedStatuses     = []string{orders.StatusFailed}
	diagnosticStatuses = []string{orders.StatusCancelled, orders.StatusRefunded}
)

// OrderSource is the shop API.
type OrderSource interface {
	HasOrders(ctx context.Context, after time.Time, statuses []string) (bool, error)
	ListOrders(ctx context.Context, p woocommerce.ListParams) ([]woocommerce.Order, error)
	GetProduct(ctx context.Context, productID int64) (*woocommerce.Product, error)
	DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error)
}

// ImageSaver keeps product images. Images are only downloaded when Enabled.
type ImageSaver interface {
	Enabled() bool
	Save(ctx context.Context, productID int64, data []byte, contentType string) error
}

type OrderDeleter interface {
	DeleteOrder(ctx context.Context, orderID int64) (archive.DeleteResult, error)
}

type MetricsSink interface {
	PublishCounts(ctx context.Context, counts map[string]int) error
}

// Result summarizes one run. ItemsUpdated stays 0: stored items are never rewritten.
type Result struct {
	OrdersCreated int      `json:"ordersCreated"`
	OrdersUpdated int      `json:"ordersUpdated"`
	ItemsCreated  int      `json:"itemsCreated"`
	ItemsUpdated  int      `json:"itemsUpdated"`
	Errors        []string `json:"errors"`
}

// Deps are the collaborators of an Engine. Images and Metrics are optional.
type Deps struct {
	Source     OrderSource
	Orders     *orders.Store
	Items      *orders.ItemStore
	Dispatcher *production.Dispatcher
	Deleter    OrderDeleter
	Images     ImageSaver
	Metrics    MetricsSink
	Locker     Locker
	Logger     logrus.FieldLogger
}

type Options struct {
	PageSize  int
	PageDelay time.Duration
	Location  *time.Location
}

type Engine struct {
	source     OrderSource
	orders     *orders.Store
	items      *orders.ItemStore
	dispatcher *production.Dispatcher
	deleter    OrderDeleter
	images     ImageSaver
	metrics    MetricsSink
	locker     Locker
	logger     *logrus.Entry

	pageSize  int
	pageDelay time.Duration
	loc       *time.Location
	nowFunc   func() time.Time

	mu      sync.Mutex
	session *Session
	lastLog string
}

func NewEngine(d Deps, opts Options) *Engine {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if d.Locker == nil {
		d.Locker = NewLocalLocker()
	}
	return &Engine{
		source:     d.Source,
		orders:     d.Orders,
		items:      d.Items,
		dispatcher: d.Dispatcher,
		deleter:    d.Deleter,
		images:     d.Images,
		metrics:    d.Metrics,
		locker:     d.Locker,
		logger:     d.Logger.WithField("module", "syncer"),
		pageSize:   opts.PageSize,
		pageDelay:  opts.PageDelay,
		loc:        opts.Location,
		nowFunc:    time.Now,
	}
}

// LastLog returns the most recent progress line of the current or last run.
func (e *Engine) LastLog() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastLog
}

// Cancel aborts the upstream fetches of the running sync. It reports whether
// a sync was running.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s == nil {
		return false
	}
	s.Cancel()
	e.logf(logrus.WarnLevel, "sync %s cancelled", s.ID)
	return true
}

// Running returns the in-flight session, or nil.
func (e *Engine) Running() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

func (e *Engine) logf(level logrus.Level, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	e.mu.Lock()
	e.lastLog = e.nowFunc().In(e.loc).Format("15:04:05") + " " + line
	e.mu.Unlock()
	e.logger.Log(level, line)
}

// Run pulls orders placed after since, or after the newest stored order when
// since is nil. On an empty store without since only new orders are pulled.
// Per-order failures land in Result.Errors; only a busy lock or an unusable
// fetch window fail the whole run.
func (e *Engine) Run(ctx context.Context, since *time.Time) (Result, error) {
	res := Result{Errors: []string{}}

	release, err := e.locker.TryLock(ctx)
	if err != nil {
		return res, err
	}
	defer release()

	s := newSession(ctx, e.nowFunc())
	e.mu.Lock()
	e.session = s
	e.mu.Unlock()
	defer func() {
		s.Cancel()
		e.mu.Lock()
		e.session = nil
		e.mu.Unlock()
	}()

	after, err := e.window(ctx, since)
	if err != nil {
		e.logf(logrus.ErrorLevel, "sync aborted: %v", err)
		return res, err
	}
	e.logf(logrus.InfoLevel, "sync %s started, orders after %s", s.ID, after.Format(time.RFC3339))

	fetched, err := e.fetch(s, after, activeStatuses)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	e.logf(logrus.InfoLevel, "%d orders fetched", len(fetched))

	e.cleanupFailed(ctx, s, after, &res)
	e.detectRemoved(ctx, s, after, fetched)

	for i, wo := range fetched {
		if err := e.syncOrder(ctx, s, wo, &res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("order %d: %v", wo.ID, err))
			e.logf(logrus.ErrorLevel, "order %d failed: %v", wo.ID, err)
			continue
		}
		e.logf(logrus.DebugLevel, "order %d synced (%d/%d)", wo.ID, i+1, len(fetched))
	}

	if n, err := e.dispatcher.SweepUndispatched(ctx); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("dispatch sweep: %v", err))
	} else if n > 0 {
		e.logf(logrus.InfoLevel, "%d undispatched items dispatched", n)
	}

	e.publish(ctx, res)
	e.logf(logrus.InfoLevel, "sync %s done: %d orders created, %d updated, %d items created, %d errors",
		s.ID, res.OrdersCreated, res.OrdersUpdated, res.ItemsCreated, len(res.Errors))
	return res, nil
}

func (e *Engine) window(ctx context.Context, since *time.Time) (time.Time, error) {
	if since != nil {
		y, m, d := since.In(e.loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, e.loc), nil
	}
	latest, ok, err := e.orders.LatestOrderDate(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest order date: %w", err)
	}
	if !ok {
		return e.nowFunc().In(e.loc), nil
	}
	return latest.In(e.loc), nil
}

// fetch pages through the shop. A failing page ends pagination and the orders
// fetched so far are kept.
func (e *Engine) fetch(s *Session, after time.Time, statuses []string) ([]woocommerce.Order, error) {
	ctx := s.Upstream()
	ok, err := e.source.HasOrders(ctx, after, statuses)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", strings.Join(statuses, ","), err)
	}
	if !ok {
		return nil, nil
	}

	var all []woocommerce.Order
	for page := 1; ; page++ {
		batch, err := e.source.ListOrders(ctx, woocommerce.ListParams{
			Page:     page,
			PerPage:  e.pageSize,
			After:    after,
			Statuses: statuses,
		})
		if err != nil {
			return all, fmt.Errorf("fetch %s page %d: %w", strings.Join(statuses, ","), page, err)
		}
		all = append(all, batch...)
		e.logf(logrus.InfoLevel, "page %d: %d orders (%s)", page, len(batch), strings.Join(statuses, ","))
		if len(batch) < e.pageSize {
			return all, nil
		}
		if e.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return all, fmt.Errorf("fetch %s: %w", strings.Join(statuses, ","), ctx.Err())
			case <-time.After(e.pageDelay):
			}
		}
	}
}

// cleanupFailed deletes local copies of orders the shop marks as failed.
func (e *Engine) cleanupFailed(ctx context.Context, s *Session, after time.Time, res *Result) {
	failed, err := e.fetch(s, after, failedStatuses)
	if err != nil {
		e.logf(logrus.WarnLevel, "failed orders lookup: %v", err)
	}
	for _, wo := range failed {
		del, err := e.deleter.DeleteOrder(ctx, wo.ID)
		if err != nil {
			if errors.Is(err, archive.ErrNotFound) {
				continue
			}
			res.Errors = append(res.Errors, fmt.Sprintf("delete failed order %d: %v", wo.ID, err))
			continue
		}
		e.logf(logrus.InfoLevel, "failed order %d removed (%d items, %d statuses)", wo.ID, del.ItemsDeleted, del.StatusesDeleted)
	}
}

// detectRemoved only logs: items stored locally but gone upstream, and the
// items of cancelled or refunded orders. Nothing is deleted.
func (e *Engine) detectRemoved(ctx context.Context, s *Session, after time.Time, fetched []woocommerce.Order) {
	for _, wo := range fetched {
		upstream := make(map[int64]struct{}, len(wo.LineItems))
		for _, li := range wo.LineItems {
			upstream[li.ID] = struct{}{}
		}
		stored, err := e.items.ListByOrder(ctx, wo.ID)
		if err != nil {
			e.logf(logrus.WarnLevel, "order %d: list stored items: %v", wo.ID, err)
			continue
		}
		var gone []int64
		for _, it := range stored {
			if _, ok := upstream[it.LineItemID]; !ok {
				gone = append(gone, it.LineItemID)
			}
		}
		if len(gone) > 0 {
			sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
			e.logf(logrus.WarnLevel, "order %d: items %v no longer upstream", wo.ID, gone)
		}
	}

	cancelled, err := e.fetch(s, after, diagnosticStatuses)
	if err != nil {
		e.logf(logrus.WarnLevel, "cancelled orders lookup: %v", err)
	}
	if len(cancelled) > 0 {
		count := 0
		for _, wo := range cancelled {
			count += len(wo.LineItems)
		}
		e.logf(logrus.InfoLevel, "%d cancelled/refunded orders upstream with %d items", len(cancelled), count)
	}
}

// syncOrder stores the order's new items first so that a newly inserted order
// carries their snapshot.
func (e *Engine) syncOrder(ctx context.Context, s *Session, wo woocommerce.Order, res *Result) error {
	var itemErrs []string
	for _, li := range wo.LineItems {
		created, err := e.syncItem(ctx, s, wo.ID, li)
		if err != nil {
			itemErrs = append(itemErrs, fmt.Sprintf("item %d: %v", li.ID, err))
			continue
		}
		if !created {
			continue
		}
		res.ItemsCreated++
		if err := e.dispatchNew(ctx, wo.ID, li); err != nil {
			itemErrs = append(itemErrs, fmt.Sprintf("dispatch item %d: %v", li.ID, err))
		}
	}

	existing, err := e.orders.Get(ctx, wo.ID)
	if err != nil {
		return err
	}
	snapshot, err := e.items.ListByOrder(ctx, wo.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		if len(existing.Items) == 0 && len(snapshot) > 0 {
			ok, err := e.orders.BackfillItems(ctx, wo.ID, snapshot)
			if err != nil {
				return err
			}
			if ok {
				res.OrdersUpdated++
			}
		}
	} else {
		o := toOrder(wo, e.loc)
		o.Items = snapshot
		created, err := e.orders.Insert(ctx, o)
		if err != nil {
			return err
		}
		if created {
			res.OrdersCreated++
		}
	}

	if len(itemErrs) > 0 {
		return fmt.Errorf("%s", strings.Join(itemErrs, "; "))
	}
	return nil
}

// syncItem inserts a line item seen for the first time, with its product
// permalink and image. Product and image failures never fail the item.
func (e *Engine) syncItem(ctx context.Context, s *Session, orderID int64, li woocommerce.LineItem) (bool, error) {
	exists, err := e.items.Exists(ctx, orderID, li.ID)
	if err != nil || exists {
		return false, err
	}

	info, fresh := e.product(ctx, s, li.ProductID)
	created, err := e.items.Insert(ctx, toItem(orderID, li, info))
	if err != nil || !created {
		return false, err
	}
	if fresh && info.imageURL != "" && e.images != nil && e.images.Enabled() {
		e.saveImage(ctx, li.ProductID, info.imageURL)
	}
	return true, nil
}

// product returns the product detail, fetching it once per session. It runs on
// the caller's context so a cancelled page fetch does not strip details from
// items that are still being inserted.
func (e *Engine) product(ctx context.Context, s *Session, productID int64) (productInfo, bool) {
	if productID == 0 {
		return productInfo{}, false
	}
	if info, ok := s.products[productID]; ok {
		return info, false
	}
	var info productInfo
	p, err := e.source.GetProduct(ctx, productID)
	if err != nil {
		e.logger.WithError(err).WithField("product_id", productID).Warn("product detail unavailable")
	} else {
		info = productInfo{permalink: p.Permalink, imageURL: p.FirstImage()}
	}
	s.products[productID] = info
	return info, err == nil
}

func (e *Engine) saveImage(ctx context.Context, productID int64, imageURL string) {
	data, contentType, err := e.source.DownloadImage(ctx, imageURL)
	if err == nil {
		err = e.images.Save(ctx, productID, data, contentType)
	}
	if err != nil {
		e.logger.WithError(err).WithField("product_id", productID).Debug("product image skipped")
	}
}

func (e *Engine) dispatchNew(ctx context.Context, orderID int64, li woocommerce.LineItem) error {
	key := production.Key{OrderID: orderID, LineItemID: li.ID}
	st, err := e.dispatcher.Statuses().Get(ctx, key)
	if err != nil || st != nil {
		return err
	}
	_, err = e.dispatcher.Dispatch(ctx, orderID, li.ID, li.Name)
	return err
}

func (e *Engine) publish(ctx context.Context, res Result) {
	if e.metrics == nil {
		return
	}
	err := e.metrics.PublishCounts(ctx, map[string]int{
		"OrdersCreated": res.OrdersCreated,
		"ItemsCreated":  res.ItemsCreated,
		"SyncErrors":    len(res.Errors),
	})
	if err != nil {
		e.logger.WithError(err).Warn("publish sync metrics")
	}
}
