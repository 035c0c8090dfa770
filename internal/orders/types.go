package orders

import "time"

// Upstream order statuses the sync engine cares about.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
)

// Shipping carriers derived at sync time.
const (
	CarrierDHL       = "DHL"
	CarrierUPS       = "UPS"
	CarrierColissimo = "Colissimo"
)

// MetaEntry is one product option of a line item (size, colour...).
type MetaEntry struct {
	Key   string `dynamodbav:"key" json:"key"`
	Value string `dynamodbav:"value" json:"value"`
}

// Order mirrors one upstream commerce order. Core fields are written once.
type Order struct {
	OrderID         int64     `dynamodbav:"order_id" json:"order_id"` // PK
	OrderNumber     string    `dynamodbav:"order_number" json:"order_number"`
	OrderDate       time.Time `dynamodbav:"order_date" json:"order_date"`
	CustomerName    string    `dynamodbav:"customer_name" json:"customer_name"`
	CustomerEmail   string    `dynamodbav:"customer_email,omitempty" json:"customer_email,omitempty"`
	CustomerPhone   string    `dynamodbav:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	CustomerAddress string    `dynamodbav:"customer_address,omitempty" json:"customer_address,omitempty"`
	CustomerCountry string    `dynamodbav:"customer_country,omitempty" json:"customer_country,omitempty"`
	CustomerNote    string    `dynamodbav:"customer_note,omitempty" json:"customer_note,omitempty"`
	Status          string    `dynamodbav:"status" json:"status"`
	Total           string    `dynamodbav:"total" json:"total"`
	ShippingMethod  string    `dynamodbav:"shipping_method,omitempty" json:"shipping_method,omitempty"`
	ShippingTitle   string    `dynamodbav:"shipping_title,omitempty" json:"shipping_title,omitempty"`
	ShippingCarrier string    `dynamodbav:"shipping_carrier,omitempty" json:"shipping_carrier,omitempty"`
	Items           []Item    `dynamodbav:"items,omitempty" json:"items"` // snapshot, may be empty
	CreatedAt       time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt       time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// Item is one purchased line of an Order, unique per (order_id, line_item_id).
type Item struct {
	OrderID     int64       `dynamodbav:"order_id" json:"order_id"`         // PK
	LineItemID  int64       `dynamodbav:"line_item_id" json:"line_item_id"` // SK
	ProductID   int64       `dynamodbav:"product_id" json:"product_id"`
	ProductName string      `dynamodbav:"product_name" json:"product_name"`
	VariationID int64       `dynamodbav:"variation_id,omitempty" json:"variation_id,omitempty"`
	Quantity    int         `dynamodbav:"quantity" json:"quantity"`
	Price       string      `dynamodbav:"price" json:"price"`
	Permalink   string      `dynamodbav:"permalink,omitempty" json:"permalink,omitempty"`
	ImageURL    string      `dynamodbav:"image_url,omitempty" json:"image_url,omitempty"`
	MetaData    []MetaEntry `dynamodbav:"meta_data,omitempty" json:"meta_data,omitempty"`
	CreatedAt   time.Time   `dynamodbav:"created_at" json:"created_at"`
}
