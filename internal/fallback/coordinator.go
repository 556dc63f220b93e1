// Package fallback merges the AI collaborator's opinion into a low-confidence result.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/confidence"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/fields"
)

// AIExtractor is the structured-extraction collaborator.
type AIExtractor interface {
	ExtractStructured(ctx context.Context, doc entity.RawDocument) (entity.AIFields, error)
}

// Outcome is the result of one fallback attempt.
type Outcome struct {
	Fields     entity.ExtractedFields
	Confidence confidence.Result
	Merged     bool
	Warnings   []string
}

type Coordinator struct {
	ai     AIExtractor
	scorer *confidence.Scorer
	logger *slog.Logger
}

func NewCoordinator(ai AIExtractor, scorer *confidence.Scorer, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{ai: ai, scorer: scorer, logger: logger}
}

// Enhance asks the collaborator for fields and merges them into in.Fields.
// A failed call leaves the deterministic result untouched; it is never an error.
func (c *Coordinator) Enhance(ctx context.Context, doc entity.RawDocument, in confidence.Input, current confidence.Result) Outcome {
	out := Outcome{Fields: in.Fields, Confidence: current}
	if c.ai == nil {
		return out
	}
	start := time.Now()
	ai, err := c.ai.ExtractStructured(ctx, doc)
	if err != nil {
		if !errors.Is(err, common.ErrAIServiceUnavailable) {
			err = fmt.Errorf("%w: %v", common.ErrAIServiceUnavailable, err)
		}
		c.logger.Warn("fallback.ai.unavailable", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		out.Warnings = append(out.Warnings, err.Error())
		return out
	}

	merged, warns := Merge(in.Fields, ai, in.Platform, c.scorer)
	in.Fields = merged
	out.Fields = merged
	out.Confidence = c.scorer.Score(in)
	out.Merged = true
	out.Warnings = append(out.Warnings, warns...)
	c.logger.Info("fallback.merge.done",
		"score_before", current.Score,
		"score_after", out.Confidence.Score,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

var reInvoiceNumber = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-/]{2,29}$`)

// ValidInvoiceNumber reports a plausible invoice number: a short code with a digit.
func ValidInvoiceNumber(v *string) bool {
	return v != nil && reInvoiceNumber.MatchString(*v) && strings.ContainsAny(*v, "0123456789")
}

// Merge keeps each deterministic value only when it passes its own check and
// takes the AI value otherwise, even when that is empty. Fields the AI does
// not return become nil when the deterministic value is invalid.
func Merge(det entity.ExtractedFields, ai entity.AIFields, p constants.Platform, s *confidence.Scorer) (entity.ExtractedFields, []string) {
	var warns []string
	out := det

	if !s.ValidProductName(det.ProductName) {
		out.ProductName = entity.StrPtr(strings.TrimSpace(ai.ProductName))
	}
	if det.OrderID == nil || !fields.ValidOrderID(p, *det.OrderID) {
		id := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(ai.OrderID), " ", ""))
		out.OrderID = nil
		if id != "" {
			if fields.ValidOrderID(p, id) {
				out.OrderID = &id
			} else {
				warns = append(warns, fmt.Sprintf("%v: ai order id %q", common.ErrFieldInvalid, id))
			}
		}
	}
	if !ValidInvoiceNumber(det.InvoiceNumber) {
		out.InvoiceNumber = entity.StrPtr(strings.ToUpper(strings.TrimSpace(ai.InvoiceNumber)))
	}
	if !s.ValidPrice(det.Price) {
		out.Price = nil
		if v, ok := parseAmount(ai.TotalAmount); ok {
			out.Price = &v
		} else if strings.TrimSpace(ai.TotalAmount) != "" {
			warns = append(warns, fmt.Sprintf("%v: ai total %q", common.ErrFieldInvalid, ai.TotalAmount))
		}
	}
	if !confidence.ValidDate(det.OrderDate) {
		out.OrderDate = nil
		if v, ok := fields.NormalizeDate(ai.PurchaseDate); ok {
			out.OrderDate = &v
		} else if strings.TrimSpace(ai.PurchaseDate) != "" {
			warns = append(warns, fmt.Sprintf("%v: ai date %q", common.ErrFieldInvalid, ai.PurchaseDate))
		}
	}
	if !confidence.ValidDate(det.InvoiceDate) {
		out.InvoiceDate = nil
	}
	if !s.ValidVendor(det.Vendor) {
		out.Vendor = entity.StrPtr(strings.TrimSpace(ai.Retailer))
	}
	if !s.ValidTaxCode(det.TaxCode) {
		out.TaxCode = nil
	}
	return out, warns
}

var amountCleaner = strings.NewReplacer("₹", "", ",", "", " ", "", "INR", "", "Rs.", "", "Rs", "", "rs.", "", "rs", "")

func parseAmount(s string) (decimal.Decimal, bool) {
	s = amountCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Decimal{}, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil || !v.IsPositive() {
		return decimal.Decimal{}, false
	}
	return v, true
}
