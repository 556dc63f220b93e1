package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extract/constants"
)

// ExtractedFields is the structured purchase data; nil means "not found".
type ExtractedFields struct {
	ProductName   *string          `json:"product_name"`
	OrderID       *string          `json:"order_id"`
	InvoiceNumber *string          `json:"invoice_number"`
	OrderDate     *string          `json:"order_date"`   // YYYY-MM-DD
	InvoiceDate   *string          `json:"invoice_date"` // YYYY-MM-DD
	Price         *decimal.Decimal `json:"price"`
	Vendor        *string          `json:"vendor"`
	TaxCode       *string          `json:"tax_code"`
}

// ExtractionResult is the output contract of one pipeline run.
type ExtractionResult struct {
	Platform           constants.Platform         `json:"platform"`
	PlatformConfidence int                        `json:"platform_confidence"`
	Fields             ExtractedFields            `json:"fields"`
	ConfidenceScore    int                        `json:"confidence_score"`
	ExtractionMethod   constants.ExtractionMethod `json:"extraction_method"`
	AcquisitionMethod  constants.ExtractionMethod `json:"acquisition_method"`
	PageCount          int                        `json:"page_count"`
	SelectedPage       int                        `json:"selected_page"`
	LowPageConfidence  bool                       `json:"low_page_confidence"`
	Insufficient       bool                       `json:"insufficient"`
	Warnings           []string                   `json:"warnings"`
	Duration           time.Duration              `json:"duration_ns"`
}

// StrPtr returns nil for blank strings and a pointer to s otherwise.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// AIFields is the response of the AI structured-extraction collaborator.
// Values are raw strings; "" means the model found nothing.
type AIFields struct {
	ProductName   string `json:"product_name"`
	OrderID       string `json:"order_id"`
	InvoiceNumber string `json:"invoice_number"`
	TotalAmount   string `json:"total_amount"`
	PurchaseDate  string `json:"purchase_date"`
	Retailer      string `json:"retailer"`
}
