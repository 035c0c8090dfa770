package syncer

import (
	"strings"

	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/woocommerce"
)

var carrierKeywords = []struct {
	keyword string
	carrier string
}{
	{"colissimo", orders.CarrierColissimo},
	{"la poste", orders.CarrierColissimo},
	{"dhl", orders.CarrierDHL},
	{"ups", orders.CarrierUPS},
}

// deriveCarrier names the shipping carrier of an order from its shipping lines.
// Free shipping without a recognizable carrier goes UPS in France and DHL abroad.
func deriveCarrier(o woocommerce.Order) string {
	if len(o.ShippingLines) == 0 {
		return ""
	}
	free := true
	for _, line := range o.ShippingLines {
		texts := []string{line.MethodID, line.MethodTitle}
		for _, m := range line.MetaData {
			texts = append(texts, m.ValueString(), m.DisplayValueString())
		}
		for _, text := range texts {
			if c := matchCarrier(text); c != "" {
				return c
			}
		}
		free = free && isZeroMoney(line.Total)
	}
	if !free {
		return ""
	}
	country := o.Shipping.Country
	if country == "" {
		country = o.Billing.Country
	}
	if strings.EqualFold(strings.TrimSpace(country), "FR") {
		return orders.CarrierUPS
	}
	return orders.CarrierDHL
}

func matchCarrier(text string) string {
	text = strings.ToLower(text)
	for _, k := range carrierKeywords {
		if strings.Contains(text, k.keyword) {
			return k.carrier
		}
	}
	return ""
}
