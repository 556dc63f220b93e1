package fields

import (
	"regexp"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/preprocess"
)

// Amazon reads amazon.in tax invoices: "Sl. No | Description" tables with an
// "| ASIN ( SKU )" suffix on the item line and 3-7-7 order numbers.
type Amazon struct{ base }

var reAmazonSelf = regexp.MustCompile(`(?i)\bamazon\s+(?:seller\s+services|internet\s+services)\b`)

func (Amazon) Platform() constants.Platform { return constants.PlatformAmazon }

func (Amazon) ExtractOrderID(text string) *string {
	return found(amazonOrderID(text))
}

func (Amazon) ExtractProductName(text string) *string {
	return found(productName(text, func(s string) string {
		return cutAtCurrency(reASINSuffix.ReplaceAllString(s, ""))
	}, nil))
}

// ExtractVendor skips Amazon's own entities, which appear on every invoice
// but are not the seller.
func (Amazon) ExtractVendor(text string) *string {
	lines := preprocess.Lines(text)
	if v, ok := vendorAfterLabel(lines); ok {
		return &v
	}
	return found(vendorBySuffix(lines, reAmazonSelf))
}
