package assignments

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/maisoncleo/atelier-tracker/internal/production"
)

var (
	ErrInvalidArticle   = errors.New("invalid article id")
	ErrArticleNotFound  = errors.New("article not found")
	ErrAmbiguousArticle = errors.New("article id matches several orders")
)

// LineItemLookup finds production statuses by bare line item id.
type LineItemLookup interface {
	ListByLineItem(ctx context.Context, lineItemID int64) ([]production.Status, error)
}

// ParseArticleKey parses the canonical "<order_id>_<line_item_id>" form.
func ParseArticleKey(raw string) (production.Key, error) {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	if len(parts) != 2 {
		return production.Key{}, ErrInvalidArticle
	}
	orderID, err1 := strconv.ParseInt(parts[0], 10, 64)
	lineItemID, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || orderID <= 0 || lineItemID <= 0 {
		return production.Key{}, ErrInvalidArticle
	}
	return production.Key{OrderID: orderID, LineItemID: lineItemID}, nil
}

// ResolveArticle turns a client supplied article id into a typed key.
// A bare line item id is accepted only when it identifies exactly one item.
func ResolveArticle(ctx context.Context, lookup LineItemLookup, raw string) (production.Key, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "_") {
		return ParseArticleKey(raw)
	}
	lineItemID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || lineItemID <= 0 {
		return production.Key{}, ErrInvalidArticle
	}
	matches, err := lookup.ListByLineItem(ctx, lineItemID)
	if err != nil {
		return production.Key{}, err
	}
	switch len(matches) {
	case 0:
		return production.Key{}, ErrArticleNotFound
	case 1:
		return matches[0].Key(), nil
	default:
		return production.Key{}, ErrAmbiguousArticle
	}
}
