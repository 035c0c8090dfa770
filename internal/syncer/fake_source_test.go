package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/maisoncleo/atelier-tracker/internal/woocommerce"
)

// fakeSource serves orders from memory, filtered and paginated like the shop.
type fakeSource struct {
	mu           sync.Mutex
	orders       []woocommerce.Order
	products     map[int64]*woocommerce.Product
	images       map[string][]byte
	productErr   error
	pageErrs     map[int]error
	productCalls map[int64]int
	downloads    int
	afters       []time.Time

	// onPage runs before an active-orders page is served
	onPage func(page int)

	// when block is set, listing active orders waits on it; entered is closed on arrival
	block   chan struct{}
	entered chan struct{}
}

func newFakeSource(orders ...woocommerce.Order) *fakeSource {
	return &fakeSource{
		orders:       orders,
		products:     map[int64]*woocommerce.Product{},
		images:       map[string][]byte{},
		pageErrs:     map[int]error{},
		productCalls: map[int64]int{},
	}
}

func (f *fakeSource) set(orders ...woocommerce.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = orders
}

func (f *fakeSource) matching(after time.Time, statuses []string) []woocommerce.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	var out []woocommerce.Order
	for _, o := range f.orders {
		if !want[o.Status] {
			continue
		}
		created, err := time.Parse(wcTimeLayout, o.DateCreatedGMT)
		if err == nil && !after.IsZero() && !created.After(after) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (f *fakeSource) HasOrders(ctx context.Context, after time.Time, statuses []string) (bool, error) {
	f.mu.Lock()
	f.afters = append(f.afters, after)
	f.mu.Unlock()
	return len(f.matching(after, statuses)) > 0, nil
}

func (f *fakeSource) ListOrders(ctx context.Context, p woocommerce.ListParams) ([]woocommerce.Order, error) {
	active := len(p.Statuses) > 0 && p.Statuses[0] == "processing"
	if active && f.onPage != nil {
		f.onPage(p.Page)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if active && f.block != nil {
		close(f.entered)
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	err := f.pageErrs[p.Page]
	f.mu.Unlock()
	if active && err != nil {
		return nil, err
	}
	all := f.matching(p.After, p.Statuses)
	start := (p.Page - 1) * p.PerPage
	if start >= len(all) {
		return nil, nil
	}
	end := start + p.PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeSource) GetProduct(ctx context.Context, productID int64) (*woocommerce.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls[productID]++
	if f.productErr != nil {
		return nil, f.productErr
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, &woocommerce.APIError{StatusCode: 404, Body: "not found"}
	}
	return p, nil
}

func (f *fakeSource) DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	data, ok := f.images[imageURL]
	if !ok {
		return nil, "", errors.New("image not found")
	}
	return data, "image/jpeg", nil
}
