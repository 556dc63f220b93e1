// Package price resolves the true payable total of an invoice from raw text.
//
// Every extraction strategy calls Resolve so that all platforms agree on which
// figure is "the price". Labeled amounts are ranked by tier:
//
//	1  grand total
//	2  total            (last money token on its line)
//	3  total amount
//	4  final / net amount
//
// The lowest tier present wins and the largest value wins within a tier. When
// no label is present the largest currency-marked amount of at least
// MinFallback is used.
package price

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Tier ranks a labeled amount; lower is stronger.
type Tier int

const (
	TierGrandTotal  Tier = 1
	TierTotal       Tier = 2
	TierTotalAmount Tier = 3
	TierFinalNet    Tier = 4
	tierNone        Tier = 0
)

// MinFallback is the smallest unlabeled currency amount considered plausible.
var MinFallback = decimal.NewFromInt(10)

// Candidate is one labeled amount occurrence.
type Candidate struct {
	Value      decimal.Decimal
	Tier       Tier
	Occurrence int
}

var (
	reLabel = regexp.MustCompile(`(?i)\bgrand\s*total|total\s*amount|amount\s*payable|\b(?:final|net)\s*(?:amount|payable|total)|sub\s*-?\s*total|\btotal\b`)

	reMoney = regexp.MustCompile(`(?i)(₹|rs\.?|inr|\$)?\s*((?:\d{1,3}(?:,\d{2,3})+|\d+)(?:\.\d{1,2})?)`)

	// "Total Amount in words: ..." restates the figure; what follows is prose
	reInWords = regexp.MustCompile(`(?i)^\s*[(\[]?\s*in\s+words\b`)

	// words after a bare "total" that make it a count or a breakdown, not a payable
	reTotalNoise = regexp.MustCompile(`(?i)^\s*(?:qty|quantity|items?|units?|tax|gst|igst|cgst|sgst|discount|savings|weight|pcs|no\.?\s+of)\b`)
)

// Token is a money-like number found in text.
type Token struct {
	Value     decimal.Decimal
	Currency  bool // preceded by a currency marker
	MoneyLike bool // currency marker, decimals or digit grouping
	Start     int
	End       int
}

// Tokens returns the plausible money tokens in s, in order.
func Tokens(s string) []Token {
	var out []Token
	for _, m := range reMoney.FindAllStringSubmatchIndex(s, -1) {
		end, numStart := m[1], m[4]
		hasCur := m[2] >= 0
		if hasCur && isWordMarker(s[m[2]:m[3]]) && !boundaryBefore(s, m[2]) {
			// "rs"/"inr" inside a word ("Sellers 5"), not a currency marker
			hasCur = false
		}
		start := numStart
		if hasCur {
			start = m[2]
		}
		if (!hasCur && !boundaryBefore(s, numStart)) || !boundaryAfter(s, end) {
			continue
		}
		raw := s[numStart:end]
		grouped := strings.Contains(raw, ",")
		decimals := strings.Contains(raw, ".")
		if !hasCur && !grouped && !decimals && len(raw) > 7 {
			// identifiers, HSN codes and phone numbers
			continue
		}
		v, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil || !v.IsPositive() {
			continue
		}
		out = append(out, Token{
			Value:     v,
			Currency:  hasCur,
			MoneyLike: hasCur || grouped || decimals,
			Start:     start,
			End:       end,
		})
	}
	return out
}

func isWordMarker(m string) bool {
	r, _ := utf8.DecodeRuneInString(m)
	return unicode.IsLetter(r)
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	switch r {
	case '/', '-', '.', '#', ':':
		// ':' is fine after a label ("Total:488") but not inside times ("10:45")
		if r == ':' && i >= 2 {
			p, _ := utf8.DecodeLastRuneInString(s[:i-1])
			return !unicode.IsDigit(p)
		}
		return r == ':'
	}
	return true
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, size := utf8.DecodeRuneInString(s[i:])
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '%' {
		return false
	}
	if r == '/' || r == '-' || r == ':' {
		n, _ := utf8.DecodeRuneInString(s[i+size:])
		return !unicode.IsDigit(n)
	}
	return true
}

func classify(label, rest string) Tier {
	l := strings.ToLower(strings.Join(strings.Fields(label), " "))
	if reInWords.MatchString(rest) {
		return tierNone
	}
	switch {
	case strings.HasPrefix(l, "grand"):
		return TierGrandTotal
	case strings.HasPrefix(l, "sub"):
		return tierNone
	case strings.HasPrefix(l, "total amount"), strings.HasPrefix(l, "amount payable"):
		return TierTotalAmount
	case strings.HasPrefix(l, "final"), strings.HasPrefix(l, "net"):
		return TierFinalNet
	case l == "total":
		if reTotalNoise.MatchString(rest) {
			return tierNone
		}
		return TierTotal
	}
	return tierNone
}

// pick chooses the token for a tier from one segment of text.
func pick(tier Tier, toks []Token) (Token, bool) {
	strong := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.MoneyLike {
			strong = append(strong, t)
		}
	}
	if len(strong) == 0 {
		strong = toks
	}
	if len(strong) == 0 {
		return Token{}, false
	}
	if tier == TierTotal {
		return strong[len(strong)-1], true
	}
	return strong[0], true
}

// moneyOnly keeps the tokens that read as amounts; a bare number on a line of
// its own may be a PIN code, phone or street number.
func moneyOnly(toks []Token) []Token {
	out := toks[:0]
	for _, t := range toks {
		if t.MoneyLike {
			out = append(out, t)
		}
	}
	return out
}

// Candidates returns every labeled amount in text, in reading order.
func Candidates(text string) []Candidate {
	lines := strings.Split(text, "\n")
	var out []Candidate
	occ := 0
	for i, line := range lines {
		labels := reLabel.FindAllStringIndex(line, -1)
		for j, lb := range labels {
			segEnd := len(line)
			if j+1 < len(labels) {
				segEnd = labels[j+1][0]
			}
			tier := classify(line[lb[0]:lb[1]], line[lb[1]:segEnd])
			if tier == tierNone {
				continue
			}
			tok, ok := pick(tier, Tokens(line[lb[1]:segEnd]))
			if !ok && j == len(labels)-1 && i+1 < len(lines) && !reLabel.MatchString(lines[i+1]) {
				// label and figure split across lines by the table layout
				tok, ok = pick(tier, moneyOnly(Tokens(lines[i+1])))
			}
			if !ok {
				continue
			}
			out = append(out, Candidate{Value: tok.Value, Tier: tier, Occurrence: occ})
			occ++
		}
	}
	return out
}

// best returns the strongest labeled candidate.
func best(cands []Candidate) (Candidate, bool) {
	var win Candidate
	found := false
	for _, c := range cands {
		switch {
		case !found:
			win, found = c, true
		case c.Tier < win.Tier:
			win = c
		case c.Tier == win.Tier && c.Value.GreaterThan(win.Value):
			win = c
		}
	}
	return win, found
}

// fallback returns the largest currency-marked amount ≥ MinFallback.
func fallback(text string) (decimal.Decimal, bool) {
	var max decimal.Decimal
	found := false
	for _, t := range Tokens(text) {
		if !t.Currency || t.Value.LessThan(MinFallback) {
			continue
		}
		if !found || t.Value.GreaterThan(max) {
			max, found = t.Value, true
		}
	}
	return max, found
}

// Resolve returns the payable total of text, or nil when nothing plausible exists.
func Resolve(text string) *decimal.Decimal {
	if c, ok := best(Candidates(text)); ok {
		v := c.Value
		return &v
	}
	if v, ok := fallback(text); ok {
		return &v
	}
	return nil
}

// MaxDetectedTotal returns the largest labeled amount in text, falling back to
// the largest currency-marked amount. ok is false when text carries no amount.
func MaxDetectedTotal(text string) (decimal.Decimal, bool) {
	var max decimal.Decimal
	found := false
	for _, c := range Candidates(text) {
		if !found || c.Value.GreaterThan(max) {
			max, found = c.Value, true
		}
	}
	if found {
		return max, true
	}
	for _, t := range Tokens(text) {
		if t.Currency && (!found || t.Value.GreaterThan(max)) {
			max, found = t.Value, true
		}
	}
	return max, found
}
