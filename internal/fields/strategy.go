// Package fields extracts invoice fields from the text of one page.
//
// Each marketplace has a Strategy; ForPlatform picks it. All strategies share
// the same price resolution so every platform agrees on the payable total.
package fields

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/preprocess"
	"github.com/joseph-ayodele/invoice-extract/internal/price"
)

// Strategy extracts fields the way one marketplace lays out its invoices.
// Every method returns nil when the field is not found.
type Strategy interface {
	Platform() constants.Platform
	ExtractOrderID(text string) *string
	ExtractInvoiceNumber(text string) *string
	ExtractDates(text string) (order, invoice *string)
	ExtractProductName(text string) *string
	ExtractVendor(text string) *string
	ExtractTaxCode(text string) *string
	ExtractPrice(text string) *decimal.Decimal
}

// ForPlatform returns the strategy for p; Generic serves every platform
// without a dedicated one.
func ForPlatform(p constants.Platform) Strategy {
	switch p {
	case constants.PlatformAmazon:
		return Amazon{}
	case constants.PlatformFlipkart:
		return Flipkart{}
	default:
		return Generic{}
	}
}

// Extract runs every operation of s over text.
func Extract(s Strategy, text string) entity.ExtractedFields {
	order, invoice := s.ExtractDates(text)
	return entity.ExtractedFields{
		ProductName:   s.ExtractProductName(text),
		OrderID:       s.ExtractOrderID(text),
		InvoiceNumber: s.ExtractInvoiceNumber(text),
		OrderDate:     order,
		InvoiceDate:   invoice,
		Price:         s.ExtractPrice(text),
		Vendor:        s.ExtractVendor(text),
		TaxCode:       s.ExtractTaxCode(text),
	}
}

var (
	reOrderDateLabel   = regexp.MustCompile(`(?i)\border(?:ed)?\s*(?:date|on|placed\s+on)\b`)
	reInvoiceDateLabel = regexp.MustCompile(`(?i)\b(?:invoice|bill)\s*date\b|\bdated\b`)
)

// base holds the behaviour shared by every strategy.
type base struct{}

func (base) ExtractInvoiceNumber(text string) *string {
	return found(invoiceNumber(text))
}

func (base) ExtractDates(text string) (*string, *string) {
	lines := preprocess.Lines(text)
	order, okOrder := labeledDate(lines, reOrderDateLabel)
	invoice, okInvoice := labeledDate(lines, reInvoiceDateLabel)
	if !okOrder && !okInvoice {
		order, okOrder = FindDate(text)
	}
	return found(order, okOrder), found(invoice, okInvoice)
}

func (base) ExtractProductName(text string) *string {
	return found(productName(text, nil, nil))
}

func (base) ExtractVendor(text string) *string {
	lines := preprocess.Lines(text)
	if v, ok := vendorAfterLabel(lines); ok {
		return &v
	}
	return found(vendorBySuffix(lines, nil))
}

func (base) ExtractTaxCode(text string) *string {
	return found(taxCode(preprocess.Lines(text)))
}

func (base) ExtractPrice(text string) *decimal.Decimal {
	return price.Resolve(text)
}

func found(v string, ok bool) *string {
	if !ok || v == "" {
		return nil
	}
	return &v
}
