package fields

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/preprocess"
)

// Flipkart reads flipkart.com tax invoices: "Product Title" tables, FSN lines
// and OD-prefixed order ids that recognition often fuses with the order date.
type Flipkart struct{ base }

var (
	reFlipkartSelf = regexp.MustCompile(`(?i)\bflipkart\s+(?:internet|india)\b`)
	reFSNSuffix    = regexp.MustCompile(`(?i)\s*\bFSN\b.*$`)
)

func (Flipkart) Platform() constants.Platform { return constants.PlatformFlipkart }

func (Flipkart) ExtractOrderID(text string) *string {
	return found(flipkartOrderID(text))
}

func (Flipkart) ExtractProductName(text string) *string {
	return found(productName(text, nil, func(s string) string {
		return strings.TrimSpace(reFSNSuffix.ReplaceAllString(s, ""))
	}))
}

func (Flipkart) ExtractVendor(text string) *string {
	lines := preprocess.Lines(text)
	if v, ok := vendorAfterLabel(lines); ok && !reFlipkartSelf.MatchString(v) {
		return &v
	}
	return found(vendorBySuffix(lines, reFlipkartSelf))
}
