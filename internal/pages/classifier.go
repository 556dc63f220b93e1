// Package pages picks the representative page of a multi-page invoice.
//
// Marketplace PDFs often bundle a cash-on-delivery or service-fee invoice with
// the merchandise invoice. Each page gets a signed score; fee vocabulary and
// tiny totals push it down, item tables and catalog codes push it up.
package pages

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/preprocess"
	"github.com/joseph-ayodele/invoice-extract/internal/price"
)

// Weights are the page scoring points. Negative indicators carry negative values.
type Weights struct {
	ServiceTerm  int // per distinct service/COD term
	SmallTotal   int // max detected total below SmallTotalBelow
	CategoryCode int // 8-digit HSN code
	TableHeader  int // unit price / quantity header
	ItemLine     int // long description next to a quantity of one
	ItemCode     int // FSN / ASIN
	LargeTotal   int // max detected total at or above LargeTotalFrom

	SmallTotalBelow decimal.Decimal
	LargeTotalFrom  decimal.Decimal
	ItemLineMinLen  int
}

func DefaultWeights() Weights {
	return Weights{
		ServiceTerm:     -50,
		SmallTotal:      -30,
		CategoryCode:    20,
		TableHeader:     20,
		ItemLine:        30,
		ItemCode:        30,
		LargeTotal:      40,
		SmallTotalBelow: decimal.NewFromInt(50),
		LargeTotalFrom:  decimal.NewFromInt(100),
		ItemLineMinLen:  40,
	}
}

// Classification is the score of one page.
type Classification struct {
	PageIndex         int
	Score             int
	Type              constants.PageType
	MaxDetectedTotal  *decimal.Decimal
	MatchedIndicators []string
}

// ServiceTerms mark fee and cash-on-delivery invoices.
var ServiceTerms = []string{
	"cash on delivery",
	"cod charges",
	"cod fee",
	"convenience fee",
	"service fee",
	"platform fee",
	"handling fee",
	"delivery charges",
	"shipping charges",
	"marketplace fee",
	"service invoice",
	"commission",
}

var (
	reCategoryCode = regexp.MustCompile(`\b\d{8}\b`)
	reTableHeader  = regexp.MustCompile(`(?i)\b(?:qty|quantity)\b.*\b(?:unit\s*price|price|rate|amount|total)\b|\b(?:unit\s*price|rate)\b.*\b(?:qty|quantity)\b`)
	reQtyOne       = regexp.MustCompile(`(?i)(?:^|\s)(?:qty\s*[:.]?\s*)?1(?:\s|$)`)
	reItemCode     = regexp.MustCompile(`(?i)\bFSN\s*[:\-]?\s*[A-Z0-9]{16}\b|\bASIN\s*[:\-]?\s*[A-Z0-9]{10}\b|\bB0[A-Z0-9]{8}\b`)
)

type Classifier struct {
	w      Weights
	logger *slog.Logger
}

func NewClassifier(w Weights, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if w.ItemLineMinLen <= 0 {
		w.ItemLineMinLen = 40
	}
	return &Classifier{w: w, logger: logger}
}

// Classify scores one page.
func (c *Classifier) Classify(p entity.PageText) Classification {
	out := Classification{PageIndex: p.Index}
	lower := strings.ToLower(p.Text)
	hit := func(name string, points int) {
		out.Score += points
		out.MatchedIndicators = append(out.MatchedIndicators, name)
	}

	service := 0
	for _, term := range ServiceTerms {
		if strings.Contains(lower, term) {
			service++
			hit("service:"+term, c.w.ServiceTerm)
		}
	}

	if v, ok := price.MaxDetectedTotal(p.Text); ok {
		out.MaxDetectedTotal = &v
		switch {
		case v.LessThan(c.w.SmallTotalBelow):
			hit("small_total", c.w.SmallTotal)
		case v.GreaterThanOrEqual(c.w.LargeTotalFrom):
			hit("large_total", c.w.LargeTotal)
		}
	}
	if reCategoryCode.MatchString(p.Text) {
		hit("category_code", c.w.CategoryCode)
	}
	if reTableHeader.MatchString(p.Text) {
		hit("table_header", c.w.TableHeader)
	}
	if c.hasItemLine(p.Text) {
		hit("item_line", c.w.ItemLine)
	}
	if reItemCode.MatchString(p.Text) {
		hit("item_code", c.w.ItemCode)
	}

	switch {
	case service > 0 && out.Score < 0:
		out.Type = constants.PageService
	case out.Score > 0:
		out.Type = constants.PageProduct
	default:
		out.Type = constants.PageUnknown
	}
	return out
}

// hasItemLine reports a long, mostly textual line on or next to a quantity-of-one marker.
func (c *Classifier) hasItemLine(text string) bool {
	lines := preprocess.Lines(text)
	for i, ln := range lines {
		if len([]rune(ln)) < c.w.ItemLineMinLen || preprocess.DigitRatio(ln) > 0.4 {
			continue
		}
		for j := i - 1; j <= i+1; j++ {
			if j >= 0 && j < len(lines) && reQtyOne.MatchString(lines[j]) {
				return true
			}
		}
	}
	return false
}

// Selection is the outcome of page selection.
type Selection struct {
	Page            entity.PageText
	Classifications []Classification // by page index; nil for single-page documents
	LowConfidence   bool             // every page scored negative
}

// Select scores every page concurrently and returns the representative one.
// Service pages are only chosen when nothing else is available.
func (c *Classifier) Select(ctx context.Context, pages []entity.PageText) (Selection, error) {
	if len(pages) == 0 {
		return Selection{}, nil
	}
	if len(pages) == 1 {
		return Selection{Page: pages[0]}, nil
	}
	start := time.Now()

	results := make([]Classification, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.Classify(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Selection{}, err
	}

	pool := make([]int, 0, len(results))
	for i, r := range results {
		if r.Type != constants.PageService {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		for i := range results {
			pool = append(pool, i)
		}
	}
	best := pool[0]
	for _, i := range pool[1:] {
		if better(results[i], results[best]) {
			best = i
		}
	}

	low := true
	for _, r := range results {
		if r.Score >= 0 {
			low = false
			break
		}
	}

	c.logger.Info("pages.select.done",
		"pages", len(pages),
		"selected", best,
		"score", results[best].Score,
		"type", string(results[best].Type),
		"low_confidence", low,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Selection{Page: pages[best], Classifications: results, LowConfidence: low}, nil
}

func better(a, b Classification) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return totalOf(a).GreaterThan(totalOf(b))
}

func totalOf(c Classification) decimal.Decimal {
	if c.MaxDetectedTotal == nil {
		return decimal.Zero
	}
	return *c.MaxDetectedTotal
}
