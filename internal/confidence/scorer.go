// Package confidence scores an extraction result from 0 to 100.
package confidence

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/fields"
	"github.com/joseph-ayodele/invoice-extract/internal/platform"
)

// Field names used in Result.Valid.
const (
	FieldProductName = "product_name"
	FieldOrderID     = "order_id"
	FieldPrice       = "price"
	FieldDate        = "date"
	FieldVendor      = "vendor"
	FieldTaxCode     = "tax_code"
)

// Checks lists the scored fields in a stable order.
var Checks = []string{FieldProductName, FieldOrderID, FieldPrice, FieldDate, FieldVendor, FieldTaxCode}

type Config struct {
	Threshold       float64 // below this a result is insufficient; 0 disables, DefaultConfig uses 60
	ConfidentBonus  int     // default 10
	WeakBonus       int     // default 5
	LowPagePenalty  int     // default 10
	MinProductChars int     // default 10
	MinPrice        decimal.Decimal
	MinVendorChars  int // default 3
	MinTaxChars     int // default 4
}

func DefaultConfig() Config {
	return Config{
		Threshold:       60,
		ConfidentBonus:  10,
		WeakBonus:       5,
		LowPagePenalty:  10,
		MinProductChars: 10,
		MinPrice:        decimal.NewFromInt(10),
		MinVendorChars:  3,
		MinTaxChars:     4,
	}
}

// Result is the outcome of scoring.
type Result struct {
	Score         int
	Valid         map[string]bool
	PlatformBonus int
	Insufficient  bool
}

// Input is everything the scorer looks at.
type Input struct {
	Fields            entity.ExtractedFields
	Platform          constants.Platform
	Strength          platform.Strength
	LowPageConfidence bool
}

type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	d := DefaultConfig()
	// zero is a valid threshold: nothing is ever insufficient
	if cfg.Threshold < 0 {
		cfg.Threshold = d.Threshold
	}
	if cfg.ConfidentBonus <= 0 {
		cfg.ConfidentBonus = d.ConfidentBonus
	}
	if cfg.WeakBonus <= 0 {
		cfg.WeakBonus = d.WeakBonus
	}
	if cfg.LowPagePenalty < 0 {
		cfg.LowPagePenalty = 0
	}
	if cfg.MinProductChars <= 0 {
		cfg.MinProductChars = d.MinProductChars
	}
	if cfg.MinPrice.IsZero() {
		cfg.MinPrice = d.MinPrice
	}
	if cfg.MinVendorChars <= 0 {
		cfg.MinVendorChars = d.MinVendorChars
	}
	if cfg.MinTaxChars <= 0 {
		cfg.MinTaxChars = d.MinTaxChars
	}
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Threshold() float64 { return s.cfg.Threshold }

// Validate runs the per-field checks.
func (s *Scorer) Validate(f entity.ExtractedFields, p constants.Platform) map[string]bool {
	return map[string]bool{
		FieldProductName: s.ValidProductName(f.ProductName),
		FieldOrderID:     f.OrderID != nil && fields.ValidOrderID(p, *f.OrderID),
		FieldPrice:       s.ValidPrice(f.Price),
		FieldDate:        validDate(f.OrderDate) || validDate(f.InvoiceDate),
		FieldVendor:      minLen(f.Vendor, s.cfg.MinVendorChars),
		FieldTaxCode:     minLen(f.TaxCode, s.cfg.MinTaxChars),
	}
}

func (s *Scorer) ValidProductName(v *string) bool { return minLen(v, s.cfg.MinProductChars) }

func (s *Scorer) ValidPrice(v *decimal.Decimal) bool {
	return v != nil && v.GreaterThanOrEqual(s.cfg.MinPrice)
}

func (s *Scorer) ValidVendor(v *string) bool { return minLen(v, s.cfg.MinVendorChars) }

func (s *Scorer) ValidTaxCode(v *string) bool { return minLen(v, s.cfg.MinTaxChars) }

// ValidDate reports whether v normalizes to a calendar date.
func ValidDate(v *string) bool { return validDate(v) }

func validDate(v *string) bool {
	if v == nil {
		return false
	}
	_, ok := fields.NormalizeDate(*v)
	return ok
}

func minLen(v *string, n int) bool {
	return v != nil && len([]rune(strings.TrimSpace(*v))) >= n
}

// Score computes the 0..100 confidence of in.
func (s *Scorer) Score(in Input) Result {
	valid := s.Validate(in.Fields, in.Platform)
	n := 0
	for _, ok := range valid {
		if ok {
			n++
		}
	}
	base := float64(n) / float64(len(Checks)) * 100

	bonus := 0
	switch in.Strength {
	case platform.StrengthConfident:
		bonus = s.cfg.ConfidentBonus
	case platform.StrengthWeak:
		bonus = s.cfg.WeakBonus
	}

	total := base + float64(bonus)
	if in.LowPageConfidence {
		total -= float64(s.cfg.LowPagePenalty)
	}
	score := int(math.Round(math.Max(0, math.Min(100, total))))
	return Result{
		Score:         score,
		Valid:         valid,
		PlatformBonus: bonus,
		Insufficient:  float64(score) < s.cfg.Threshold,
	}
}
