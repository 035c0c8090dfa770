package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/woocommerce"
)

func TestNormalizeMoney(t *testing.T) {
	assert.Equal(t, "129.90", normalizeMoney("129.9"))
	assert.Equal(t, "61.00", normalizeMoney("61"))
	assert.Equal(t, "0.00", normalizeMoney(""))
	assert.Equal(t, "12.35", normalizeMoney(" 12.345 "))
	assert.Equal(t, "n/a", normalizeMoney("n/a"))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+33612345678", normalizePhone("06 12 34 56 78", "FR"))
	assert.Equal(t, "+33612345678", normalizePhone("0612345678", ""))
	assert.Equal(t, "12", normalizePhone(" 12 ", "FR"))
	assert.Equal(t, "", normalizePhone("", "FR"))
}

func TestDeriveCarrier(t *testing.T) {
	line := func(id, title, total string) woocommerce.ShippingLine {
		return woocommerce.ShippingLine{MethodID: id, MethodTitle: title, Total: total}
	}
	tests := []struct {
		name     string
		lines    []woocommerce.ShippingLine
		shipping string
		billing  string
		want     string
	}{
		{"title dhl", []woocommerce.ShippingLine{line("flat_rate", "DHL Express", "15.00")}, "DE", "DE", orders.CarrierDHL},
		{"method ups", []woocommerce.ShippingLine{line("ups_standard", "Livraison", "9.00")}, "FR", "FR", orders.CarrierUPS},
		{"la poste", []woocommerce.ShippingLine{line("flat_rate", "La Poste - Lettre suivie", "4.00")}, "FR", "FR", orders.CarrierColissimo},
		{"colissimo", []woocommerce.ShippingLine{line("colissimo_relay", "Point relais", "5.00")}, "FR", "FR", orders.CarrierColissimo},
		{"free in france", []woocommerce.ShippingLine{line("free_shipping", "Livraison offerte", "0.00")}, "FR", "FR", orders.CarrierUPS},
		{"free abroad", []woocommerce.ShippingLine{line("free_shipping", "Livraison offerte", "0")}, "BE", "FR", orders.CarrierDHL},
		{"free falls back to billing", []woocommerce.ShippingLine{line("free_shipping", "Offert", "")}, "", "FR", orders.CarrierUPS},
		{"paid unknown", []woocommerce.ShippingLine{line("flat_rate", "Coursier", "12.00")}, "FR", "FR", ""},
		{"no shipping", nil, "FR", "FR", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := woocommerce.Order{
				ShippingLines: tt.lines,
				Shipping:      woocommerce.Address{Country: tt.shipping},
				Billing:       woocommerce.Address{Country: tt.billing},
			}
			assert.Equal(t, tt.want, deriveCarrier(o))
		})
	}
}

func TestDeriveCarrier_FromMeta(t *testing.T) {
	o := woocommerce.Order{ShippingLines: []woocommerce.ShippingLine{{
		MethodID:    "flat_rate",
		MethodTitle: "Standard",
		Total:       "6.00",
		MetaData:    []woocommerce.Meta{{Key: "carrier", Value: []byte(`"dhl_paket"`)}},
	}}}
	assert.Equal(t, orders.CarrierDHL, deriveCarrier(o))
}
