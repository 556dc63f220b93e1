package fields

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/invoice-extract/internal/preprocess"
	"github.com/joseph-ayodele/invoice-extract/internal/price"
)

// ProductWindow bounds how many lines under a table header are scanned.
const ProductWindow = 25

// minimum shape of a product line
const (
	minProductChars = 10
	minProductWords = 2
	maxDigitRatio   = 0.4
)

var (
	reTableHeader = regexp.MustCompile(`(?i)\b(?:description|particulars|product\s+(?:title|name|details)|item\s+(?:name|description|details))\b|^\s*(?:s(?:l|r)?\.?\s*no\.?|#)(?:\s|$)`)

	// vocabulary that never appears in a product name line
	reRejectLine = regexp.MustCompile(`(?i)\b(?:total|sub\s*-?\s*total|price|amount|mrp|tax|taxable|gst|igst|cgst|sgst|utgst|cess|discount|shipping|delivery|handling|charges?|fee|signature|signatory|authori[sz]ed|qty|quantity|hsn|sac|invoice|order\s+(?:id|no|date)|gstin|page\s+\d)\b|\bpan\s*(?:no\b|number\b|:)|(?-i:\b[A-Z]{5}\d{4}[A-Z]\b)`)

	// table content that makes a table less likely to be the merchandise one
	reTableNegative = regexp.MustCompile(`(?i)\b(?:cash\s+on\s+delivery|cod|convenience|service\s+fee|platform\s+fee|shipping|delivery\s+charges|handling)\b`)
	reCatalogCode   = regexp.MustCompile(`(?i)\bFSN\s*[:\-]?\s*[A-Z0-9]{16}\b|\bB0[A-Z0-9]{8}\b`)
	reItemCode      = regexp.MustCompile(`\b\d{6}(?:\d{2})?\b`)

	reLeadingRowNo   = regexp.MustCompile(`^\s*\d{1,3}\s*[.)\]:-]?\s+`)
	reTrailingBrackt = regexp.MustCompile(`\s*[(\[]\s*([^()\[\]]*)\s*[)\]]\s*$`)
	reTrailingPunct  = regexp.MustCompile(`[\s|:;,\-–/]+$`)
	reASINSuffix     = regexp.MustCompile(`\s*\|\s*B0[A-Z0-9]{8}\b.*$`)

	// "1 <name> ₹…" or "1 <name> HSN …"
	reRowMarker = regexp.MustCompile(`(?im)^\s*1\s*[.)]?\s+([A-Za-z][^\n]*?)\s*(?:₹|\brs\.?\s*\d|\binr\b|\bhsn\b|\bigst\b|\bcgst\b|\bsgst\b|\bgst\b|\d+(?:\.\d+)?\s*%|$)`)
)

type table struct {
	header int
	lines  []string
}

// findTables returns the line windows under every table header.
func findTables(lines []string) []table {
	var headers []int
	for i, ln := range lines {
		if reTableHeader.MatchString(ln) {
			headers = append(headers, i)
		}
	}
	var out []table
	for k, h := range headers {
		end := h + 1 + ProductWindow
		if k+1 < len(headers) && headers[k+1] < end {
			end = headers[k+1]
		}
		if end > len(lines) {
			end = len(lines)
		}
		if h+1 >= end {
			continue
		}
		out = append(out, table{header: h, lines: lines[h+1 : end]})
	}
	return out
}

var hundred = price.MinFallback.Mul(price.MinFallback)

func scoreTable(t table) int {
	body := strings.Join(t.lines, "\n")
	score := 0
	if reCatalogCode.MatchString(body) {
		score += 30
	}
	if reItemCode.MatchString(body) {
		score += 20
	}
	for _, tok := range price.Tokens(body) {
		if tok.MoneyLike && tok.Value.GreaterThan(hundred) {
			score += 40
			break
		}
	}
	score -= 50 * len(reTableNegative.FindAllString(body, -1))
	return score
}

// productName locates the merchandise table and returns its first plausible
// item line, cleaned. prepare trims a raw table row before it is judged
// (defaults to cutting at the first currency marker); clean applies
// strategy-specific tidying after the shared steps.
func productName(text string, prepare, clean func(string) string) (string, bool) {
	if prepare == nil {
		prepare = cutAtCurrency
	}
	lines := preprocess.Lines(text)
	tables := findTables(lines)
	if len(tables) > 0 {
		best := tables[0]
		if len(tables) > 1 {
			bestScore := scoreTable(best)
			for _, t := range tables[1:] {
				if s := scoreTable(t); s > bestScore {
					best, bestScore = t, s
				}
			}
		}
		for _, ln := range best.lines {
			ln = prepare(ln)
			if !isProductLine(ln) {
				continue
			}
			if name := finishName(ln, clean); name != "" {
				return name, true
			}
		}
	}
	for _, m := range reRowMarker.FindAllStringSubmatch(text, -1) {
		cand := strings.TrimSpace(m[1])
		if reRejectLine.MatchString(cand) || len(strings.Fields(cand)) < minProductWords {
			continue
		}
		if name := finishName(cand, clean); name != "" {
			return name, true
		}
	}
	return "", false
}

// cutAtCurrency drops the price columns of a row that carries its amounts
// inline, along with a quantity of one left in front of them.
func cutAtCurrency(ln string) string {
	i := strings.Index(ln, "₹")
	if i <= 0 {
		return ln
	}
	head := strings.Fields(ln[:i])
	if len(head) < minProductWords {
		return ln
	}
	if head[len(head)-1] == "1" {
		head = head[:len(head)-1]
	}
	return strings.Join(head, " ")
}

func isProductLine(ln string) bool {
	if len([]rune(ln)) < minProductChars || len(strings.Fields(ln)) < minProductWords {
		return false
	}
	if preprocess.DigitRatio(ln) > maxDigitRatio {
		return false
	}
	if reTableHeader.MatchString(ln) || reRejectLine.MatchString(ln) {
		return false
	}
	return hasLetters(ln, 3)
}

func finishName(ln string, clean func(string) string) string {
	name := CleanProductName(ln)
	if clean != nil {
		name = clean(name)
	}
	if len([]rune(name)) < 3 {
		return ""
	}
	return name
}

// CleanProductName strips the row number, a trailing bracketed catalog code
// and trailing amounts or garbled numeric tails from an item line.
func CleanProductName(ln string) string {
	s := preprocess.CompactSpaces(ln)
	s = reLeadingRowNo.ReplaceAllString(s, "")
	for i := 0; i < 5; i++ {
		before := s
		s = stripNumericTail(s)
		s = stripCatalogBracket(s)
		s = reTrailingPunct.ReplaceAllString(s, "")
		if s == before {
			break
		}
	}
	return strings.TrimSpace(s)
}

// stripCatalogBracket removes "(B07XYZ1234)" style suffixes; brackets holding
// plain words ("(heater)") are part of the name.
func stripCatalogBracket(s string) string {
	m := reTrailingBrackt.FindStringSubmatchIndex(s)
	if m == nil {
		return s
	}
	inner := strings.TrimSpace(s[m[2]:m[3]])
	if len(inner) < 4 || (!reHasDigit.MatchString(inner) && strings.ToUpper(inner) != inner) {
		return s
	}
	return s[:m[0]]
}

// stripNumericTail drops trailing money tokens, garbled digit runs and a
// quantity left dangling in front of them.
func stripNumericTail(s string) string {
	words := strings.Fields(s)
	stripped := false
	for len(words) > 1 {
		last := words[len(words)-1]
		if !isAmountLike(last) {
			break
		}
		words = words[:len(words)-1]
		stripped = true
	}
	if stripped && len(words) > 1 && words[len(words)-1] == "1" {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func isAmountLike(tok string) bool {
	t := strings.Trim(tok, "|:;,")
	if t == "" || t == "₹" || strings.EqualFold(t, "rs") || strings.EqualFold(t, "rs.") || strings.EqualFold(t, "inr") {
		return true
	}
	if strings.HasPrefix(t, "₹") {
		return true
	}
	digits := 0
	for _, r := range t {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if strings.ContainsAny(t, ".,") && digits >= 3 && preprocess.DigitRatio(t) >= 0.6 {
		return true
	}
	// long unbroken digit runs are codes or fused amounts, not model numbers
	return digits >= 6 && digits == len(t)
}

func hasLetters(s string, n int) bool {
	c := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			c++
			if c >= n {
				return true
			}
		}
	}
	return false
}
