package fields

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-extract/internal/preprocess"
)

var (
	reSoldBy        = regexp.MustCompile(`(?i)\b(?:sold\s*by|seller(?:\s*name)?|supplier|vendor)\s*[:\-]?\s*`)
	reCompanySuffix = regexp.MustCompile(`(?i)\b(?:private\s+limited|pvt\.?\s*ltd\.?|limited|ltd\.?|llp|inc\.?|enterprises|traders|retail)\b`)
	reVendorStop    = regexp.MustCompile(`(?i)\s*(?:,|\|)|\s+(?:gstin|pan|address|ship|bill|invoice|order)\b`)

	reGSTIN    = regexp.MustCompile(`\b\d{2}[A-Z]{5}\d{4}[A-Z][A-Z\d]Z[A-Z\d]\b`)
	rePAN      = regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`)
	reGSTLabel = regexp.MustCompile(`(?i)\bGST(?:IN)?\b`)
	rePANLabel = regexp.MustCompile(`(?i)\bPAN\b`)
)

// vendorAfterLabel reads the seller name after a "Sold By" style label,
// continuing onto the next line when the label stands alone.
func vendorAfterLabel(lines []string) (string, bool) {
	for i, ln := range lines {
		loc := reSoldBy.FindStringIndex(ln)
		if loc == nil {
			continue
		}
		rest := strings.TrimSpace(ln[loc[1]:])
		if rest == "" && i+1 < len(lines) {
			rest = lines[i+1]
		}
		if v := cutVendor(rest); v != "" {
			return v, true
		}
	}
	return "", false
}

// vendorBySuffix returns the first line naming a company, skipping any in exclude.
func vendorBySuffix(lines []string, exclude *regexp.Regexp) (string, bool) {
	for _, ln := range lines {
		if !reCompanySuffix.MatchString(ln) {
			continue
		}
		if exclude != nil && exclude.MatchString(ln) {
			continue
		}
		if v := cutVendor(ln); v != "" {
			return v, true
		}
	}
	return "", false
}

func cutVendor(s string) string {
	if loc := reVendorStop.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	s = strings.Trim(preprocess.CompactSpaces(s), " .:-*")
	if len([]rune(s)) > 80 || !hasLetters(s, 2) {
		return ""
	}
	return s
}

// taxCode prefers a GSTIN on a GST-labeled line, then any GSTIN, then a PAN.
func taxCode(lines []string) (string, bool) {
	for _, ln := range lines {
		if reGSTLabel.MatchString(ln) {
			if m := reGSTIN.FindString(strings.ToUpper(ln)); m != "" {
				return m, true
			}
		}
	}
	for _, ln := range lines {
		if m := reGSTIN.FindString(strings.ToUpper(ln)); m != "" {
			return m, true
		}
	}
	for _, ln := range lines {
		if rePANLabel.MatchString(ln) {
			if m := rePAN.FindString(strings.ToUpper(ln)); m != "" {
				return m, true
			}
		}
	}
	return "", false
}
