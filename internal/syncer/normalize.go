package syncer

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

const defaultPhoneRegion = "FR"

// normalizeMoney renders an amount with two decimals. Unparsable input is kept as is.
func normalizeMoney(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "0.00"
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	return d.StringFixed(2)
}

func isZeroMoney(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	d, err := decimal.NewFromString(raw)
	return err == nil && d.IsZero()
}

// normalizePhone formats a valid number as E.164 using country as the default
// region. Anything libphonenumber rejects is returned trimmed but untouched.
func normalizePhone(raw, country string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	region := strings.ToUpper(strings.TrimSpace(country))
	if region == "" {
		region = defaultPhoneRegion
	}
	p, err := libphonenumber.Parse(raw, region)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return raw
	}
	return libphonenumber.Format(p, libphonenumber.E164)
}
