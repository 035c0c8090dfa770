package production

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// knitKeywords mark a product as knitwear. The list is intentionally coarse.
var knitKeywords = []string{"tricotée", "tricoté", "knitted"}

// Classify returns the production queue for a product name:
// maille when any knit keyword appears (case-insensitive), couture otherwise.
func Classify(productName string) string {
	name := fold(productName)
	for _, kw := range knitKeywords {
		if strings.Contains(name, fold(kw)) {
			return Maille
		}
	}
	return Couture
}

// fold normalizes to NFC then applies Unicode case folding, so "TRICOTÉ" and
// a decomposed "tricoté" compare equal to the keyword.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
