package fields

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-extract/constants"
)

// FlipkartOrderDigits is the digit count after the "OD" prefix.
const FlipkartOrderDigits = 18

var (
	reAmazonOrderExact   = regexp.MustCompile(`^\d{3}-\d{7}-\d{7}$`)
	reFlipkartOrderExact = regexp.MustCompile(`^OD\d{18}$`)
	reGenericOrderExact  = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-/]{4,29}$`)

	reAmazonOrder   = regexp.MustCompile(`\b(\d{3})\s?-\s?(\d{7})\s?-\s?(\d{7})\b`)
	reFlipkartOrder = regexp.MustCompile(`\bOD(\d+)`)
	reDateTail      = regexp.MustCompile(`^[-/.](\d{1,2})[-/.](\d{2,4})`)
	reGenericOrder  = regexp.MustCompile(`(?i)\border\s*(?:number|no|id|#)\.?\s*[:#\-]?\s*([A-Z0-9][A-Z0-9\-/]{4,29})`)
	reHasDigit      = regexp.MustCompile(`\d`)
)

// ValidOrderID reports whether id has the exact shape of an order id on p.
// Unknown and Generic accept any known marketplace shape or a generic code.
func ValidOrderID(p constants.Platform, id string) bool {
	switch p {
	case constants.PlatformAmazon:
		return reAmazonOrderExact.MatchString(id)
	case constants.PlatformFlipkart:
		return reFlipkartOrderExact.MatchString(id)
	default:
		return reAmazonOrderExact.MatchString(id) || reFlipkartOrderExact.MatchString(id) ||
			(reGenericOrderExact.MatchString(id) && reHasDigit.MatchString(id))
	}
}

func amazonOrderID(text string) (string, bool) {
	for _, m := range reAmazonOrder.FindAllStringSubmatch(text, -1) {
		id := m[1] + "-" + m[2] + "-" + m[3]
		if reAmazonOrderExact.MatchString(id) {
			return id, true
		}
	}
	return "", false
}

// flipkartOrderID takes "OD" plus every following digit, then drops the day
// of a date glued onto the end ("OD…10022-02-2024") and re-validates.
// Any other length is rejected rather than trimmed.
func flipkartOrderID(text string) (string, bool) {
	for _, m := range reFlipkartOrder.FindAllStringSubmatchIndex(text, -1) {
		digits := text[m[2]:m[3]]
		switch {
		case len(digits) == FlipkartOrderDigits:
			return "OD" + digits, true
		case len(digits) > FlipkartOrderDigits:
			tail := reDateTail.FindStringSubmatch(text[m[3]:])
			if tail == nil {
				continue
			}
			day := digits[FlipkartOrderDigits:]
			if len(day) > 2 {
				continue
			}
			if _, ok := fromParts(day, tail[1], tail[2]); !ok {
				continue
			}
			id := "OD" + digits[:FlipkartOrderDigits]
			if reFlipkartOrderExact.MatchString(id) {
				return id, true
			}
		}
	}
	return "", false
}

func genericOrderID(text string) (string, bool) {
	for _, m := range reGenericOrder.FindAllStringSubmatch(text, -1) {
		id := strings.ToUpper(strings.TrimRight(m[1], "-/"))
		if ValidOrderID(constants.PlatformGeneric, id) {
			return id, true
		}
	}
	return "", false
}

var reInvoiceNumber = regexp.MustCompile(`(?i)\b(?:invoice|bill)\s*(?:number|no|#)\.?\s*[:#\-]?\s*#?\s*([A-Z0-9][A-Z0-9\-/]{3,29})`)

// invoiceNumber returns the first labeled invoice number that carries a digit.
func invoiceNumber(text string) (string, bool) {
	for _, m := range reInvoiceNumber.FindAllStringSubmatch(text, -1) {
		v := strings.TrimRight(m[1], "-/")
		if reHasDigit.MatchString(v) {
			return strings.ToUpper(v), true
		}
	}
	return "", false
}
