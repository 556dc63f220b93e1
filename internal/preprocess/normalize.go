// Package preprocess holds the text and image clean-up shared by the loader
// and the field extractors.
package preprocess

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=~]{3,}\s*$`)

	// numeric-looking tokens that may carry letter/digit confusions: "1O5.0O", "l49"
	reNumericToken = regexp.MustCompile(`[0-9OolI][0-9OolI.,]*[0-9OolI]`)
	reDigit        = regexp.MustCompile(`[0-9]`)
	reSpaceInMoney = regexp.MustCompile(`(\d)\s+\.\s*(\d{2})\b`)
	reRupeeWords   = regexp.MustCompile(`(?i)\b(?:rs\.?|inr)\s*(\d)`)
)

var digitFix = strings.NewReplacer("O", "0", "o", "0", "l", "1", "I", "1")

// Normalize collapses noisy whitespace and fixes common recognition artifacts.
// Line breaks and form feeds are kept; more than two newlines collapse to one blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFKC.String(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = CorrectDigits(strings.TrimRight(lines[i], " "))
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(s)
}

// CorrectDigits repairs letter/digit confusions inside tokens that are
// already mostly numeric, and canonicalizes rupee markers to "₹".
func CorrectDigits(line string) string {
	line = reNumericToken.ReplaceAllStringFunc(line, func(tok string) string {
		digits := len(reDigit.FindAllString(tok, -1))
		letters := len(tok) - digits - strings.Count(tok, ".") - strings.Count(tok, ",")
		if digits < 2 || letters == 0 || letters*2 > digits {
			return tok
		}
		return digitFix.Replace(tok)
	})
	line = reSpaceInMoney.ReplaceAllString(line, "$1.$2")
	return reRupeeWords.ReplaceAllString(line, "₹$1")
}

// CompactSpaces trims s and folds every whitespace run to a single space.
func CompactSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Lines splits text into trimmed, non-empty lines.
func Lines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

// DigitRatio returns the share of ASCII digits among the non-space runes of s.
func DigitRatio(s string) float64 {
	var total, digits int
	for _, r := range s {
		if r == ' ' {
			continue
		}
		total++
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}
