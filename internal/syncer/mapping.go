package syncer

import (
	"strconv"
	"strings"
	"time"

	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/woocommerce"
)

const wcTimeLayout = "2006-01-02T15:04:05"

func toOrder(wo woocommerce.Order, loc *time.Location) orders.Order {
	name := wo.Billing.FullName()
	if name == "" {
		name = wo.Shipping.FullName()
	}
	address := wo.Shipping.Lines()
	if address == "" {
		address = wo.Billing.Lines()
	}
	country := wo.Shipping.Country
	if country == "" {
		country = wo.Billing.Country
	}

	o := orders.Order{
		OrderID:         wo.ID,
		OrderNumber:     strings.TrimSpace(strings.TrimPrefix(wo.Number, "#")),
		OrderDate:       orderDate(wo, loc),
		CustomerName:    name,
		CustomerEmail:   strings.TrimSpace(wo.Billing.Email),
		CustomerPhone:   normalizePhone(wo.Billing.Phone, wo.Billing.Country),
		CustomerAddress: address,
		CustomerCountry: country,
		CustomerNote:    wo.CustomerNote,
		Status:          wo.Status,
		Total:           normalizeMoney(wo.Total),
		ShippingCarrier: deriveCarrier(wo),
	}
	if len(wo.ShippingLines) > 0 {
		o.ShippingMethod = wo.ShippingLines[0].MethodID
		o.ShippingTitle = wo.ShippingLines[0].MethodTitle
	}
	if o.OrderNumber == "" {
		o.OrderNumber = strconv.FormatInt(wo.ID, 10)
	}
	return o
}

// orderDate prefers the GMT timestamp; the local one is read in the shop's zone.
func orderDate(wo woocommerce.Order, loc *time.Location) time.Time {
	if t, err := time.ParseInLocation(wcTimeLayout, wo.DateCreatedGMT, time.UTC); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(wcTimeLayout, wo.DateCreated, loc); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func toItem(orderID int64, li woocommerce.LineItem, info productInfo) orders.Item {
	var meta []orders.MetaEntry
	for _, m := range li.MetaData {
		if strings.HasPrefix(m.Key, "_") {
			continue
		}
		key := m.DisplayKey
		if key == "" {
			key = m.Key
		}
		meta = append(meta, orders.MetaEntry{Key: key, Value: m.DisplayValueString()})
	}
	return orders.Item{
		OrderID:     orderID,
		LineItemID:  li.ID,
		ProductID:   li.ProductID,
		ProductName: li.Name,
		VariationID: li.VariationID,
		Quantity:    li.Quantity,
		Price:       normalizeMoney(li.Price.String()),
		Permalink:   info.permalink,
		ImageURL:    info.imageURL,
		MetaData:    meta,
	}
}
