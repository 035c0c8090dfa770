package woocommerce

import (
	"encoding/json"
	"strings"
)

// Order is the subset of a WooCommerce v3 order the tracker reads.
type Order struct {
	ID             int64          `json:"id"`
	Number         string         `json:"number"`
	Status         string         `json:"status"`
	DateCreated    string         `json:"date_created"`
	DateCreatedGMT string         `json:"date_created_gmt"`
	Total          string         `json:"total"`
	Currency       string         `json:"currency"`
	CustomerNote   string         `json:"customer_note"`
	Billing        Address        `json:"billing"`
	Shipping       Address        `json:"shipping"`
	ShippingLines  []ShippingLine `json:"shipping_lines"`
	LineItems      []LineItem     `json:"line_items"`
}

type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// FullName joins first and last name.
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Lines formats the postal address on one line, skipping empty parts.
func (a Address) Lines() string {
	var parts []string
	for _, p := range []string{a.Address1, a.Address2, strings.TrimSpace(a.Postcode + " " + a.City), a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type ShippingLine struct {
	ID          int64  `json:"id"`
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
	MetaData    []Meta `json:"meta_data"`
}

type LineItem struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	ProductID   int64       `json:"product_id"`
	VariationID int64       `json:"variation_id"`
	Quantity    int         `json:"quantity"`
	Price       json.Number `json:"price"`
	Total       string      `json:"total"`
	MetaData    []Meta      `json:"meta_data"`
}

// Meta is a free-form key/value pair. Values are arbitrary JSON.
type Meta struct {
	ID           int64           `json:"id"`
	Key          string          `json:"key"`
	Value        json.RawMessage `json:"value"`
	DisplayKey   string          `json:"display_key"`
	DisplayValue json.RawMessage `json:"display_value"`
}

// ValueString returns the value unquoted when it is a JSON string, raw otherwise.
func (m Meta) ValueString() string {
	return rawString(m.Value)
}

func (m Meta) DisplayValueString() string {
	if len(m.DisplayValue) == 0 {
		return m.ValueString()
	}
	return rawString(m.DisplayValue)
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

type Product struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Permalink string  `json:"permalink"`
	Images    []Image `json:"images"`
}

type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}

// FirstImage returns the URL of the main product image, or "".
func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Src
}
