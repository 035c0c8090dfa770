// Package woocommerce is a minimal client for the WooCommerce REST API v3.
package woocommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	ProbeTimeout   = 10 * time.Second
	PageTimeout    = 30 * time.Second
	ProductTimeout = 8 * time.Second
	ImageTimeout   = 15 * time.Second

	maxImageBytes = 20 << 20
)

// APIError is a non-2xx answer from the shop.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("woocommerce api error %d: %s", e.StatusCode, e.Body)
}

// Client authenticates with a consumer key/secret pair over basic auth.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	http           *http.Client
}

func NewClient(baseURL, consumerKey, consumerSecret string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("woocommerce base url is empty")
	}
	if strings.TrimSpace(consumerKey) == "" || strings.TrimSpace(consumerSecret) == "" {
		return nil, errors.New("woocommerce consumer key/secret is empty")
	}
	return &Client{
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		http:           &http.Client{},
	}, nil
}

// ListParams filters an order listing.
type ListParams struct {
	Page     int
	PerPage  int
	After    time.Time // zero means no lower bound
	Statuses []string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	page, perPage := p.Page, p.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 100
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(perPage))
	v.Set("orderby", "date")
	v.Set("order", "asc")
	if !p.After.IsZero() {
		v.Set("after", p.After.Format("2006-01-02T15:04:05"))
	}
	if len(p.Statuses) > 0 {
		v.Set("status", strings.Join(p.Statuses, ","))
	}
	return v
}

// ListOrders fetches one page of orders.
func (c *Client) ListOrders(ctx context.Context, p ListParams) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, PageTimeout)
	defer cancel()
	var out []Order
	if err := c.getJSON(ctx, "/wp-json/wc/v3/orders", p.values(), &out); err != nil {
		return nil, fmt.Errorf("list orders page %d: %w", p.Page, err)
	}
	return out, nil
}

// HasOrders asks for a single order to find out whether a full listing is worth it.
func (c *Client) HasOrders(ctx context.Context, after time.Time, statuses []string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	var out []Order
	p := ListParams{Page: 1, PerPage: 1, After: after, Statuses: statuses}
	if err := c.getJSON(ctx, "/wp-json/wc/v3/orders", p.values(), &out); err != nil {
		return false, fmt.Errorf("probe orders: %w", err)
	}
	return len(out) > 0, nil
}

// GetProduct fetches a product's permalink and images.
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, ProductTimeout)
	defer cancel()
	var out Product
	path := "/wp-json/wc/v3/products/" + strconv.FormatInt(productID, 10)
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	return &out, nil
}

// DownloadImage fetches image bytes from an absolute URL. No credentials are sent.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, ImageTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &APIError{StatusCode: resp.StatusCode, Body: http.StatusText(resp.StatusCode)}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dst any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
