// Package platform labels an invoice with the marketplace it came from.
package platform

import (
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

// Strength grades a detection for the confidence bonus.
type Strength int

const (
	StrengthNone Strength = iota
	StrengthWeak
	StrengthConfident
)

func (s Strength) String() string {
	switch s {
	case StrengthWeak:
		return "weak"
	case StrengthConfident:
		return "confident"
	default:
		return "none"
	}
}

// Signal is one piece of textual evidence for a platform.
type Signal struct {
	Name    string
	Pattern *regexp.Regexp
}

func literal(name, s string) Signal {
	return Signal{Name: name, Pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(s))}
}

// Signals lists the evidence per marketplace.
var Signals = map[constants.Platform][]Signal{
	constants.PlatformAmazon: {
		literal("domain", "amazon.in"),
		literal("company", "amazon seller services"),
		{Name: "seller", Pattern: regexp.MustCompile(`(?i)\b(?:cloudtail|appario retail|amazon retail)\b`)},
		{Name: "order_id", Pattern: regexp.MustCompile(`\b\d{3}-\d{7}-\d{7}\b`)},
		{Name: "asin", Pattern: regexp.MustCompile(`\bB0[A-Z0-9]{8}\b`)},
		literal("tax_registration", "AAICA3918J"),
		literal("header", "bill of supply/cash memo"),
	},
	constants.PlatformFlipkart: {
		literal("domain", "flipkart.com"),
		{Name: "company", Pattern: regexp.MustCompile(`(?i)\bflipkart\s+(?:internet|india)\b`)},
		{Name: "logistics", Pattern: regexp.MustCompile(`(?i)\bekart\b`)},
		{Name: "order_id", Pattern: regexp.MustCompile(`\bOD\d{18}`)},
		{Name: "fsn", Pattern: regexp.MustCompile(`(?i)\bFSN\s*[:\-]?\s*[A-Z0-9]{16}\b`)},
		literal("tax_registration", "AACCF0683K"),
	},
}

// GenericSignals mark an invoice from an unlisted seller. They only decide
// between Generic and Unknown and never earn a bonus.
var GenericSignals = []Signal{
	{Name: "invoice", Pattern: regexp.MustCompile(`(?i)\b(?:tax\s+)?invoice\b`)},
	{Name: "gstin", Pattern: regexp.MustCompile(`(?i)\bgstin\b`)},
	{Name: "bill_to", Pattern: regexp.MustCompile(`(?i)\b(?:bill(?:ing)?|ship(?:ping)?)\s+(?:to|address)\b`)},
	{Name: "order_no", Pattern: regexp.MustCompile(`(?i)\border\s*(?:no|number|id)\b`)},
}

// Detection is the outcome for one document.
type Detection struct {
	Platform          constants.Platform
	ConfidencePercent int
	Matched           []string
	Strength          Strength
}

type Config struct {
	ConfidentSignals int // matches needed for a confident detection; default 2
}

type Detector struct {
	cfg     Config
	signals map[constants.Platform][]Signal
	logger  *slog.Logger
}

func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConfidentSignals <= 0 {
		cfg.ConfidentSignals = 2
	}
	return &Detector{cfg: cfg, signals: Signals, logger: logger}
}

// Detect returns the best-supported platform. With no signals at all the
// platform is Unknown and the error wraps common.ErrNoPlatformSignals; the
// detection is still usable.
func (d *Detector) Detect(text string) (Detection, error) {
	var best Detection
	bestCount := 0
	for _, p := range constants.KnownPlatforms {
		sigs := d.signals[p]
		if len(sigs) == 0 {
			continue
		}
		var matched []string
		for _, s := range sigs {
			if s.Pattern.MatchString(text) {
				matched = append(matched, s.Name)
			}
		}
		if len(matched) == 0 {
			continue
		}
		pct := int(math.Round(float64(len(matched)) / float64(len(sigs)) * 100))
		if len(matched) > bestCount || (len(matched) == bestCount && pct > best.ConfidencePercent) {
			best = Detection{Platform: p, ConfidencePercent: pct, Matched: matched}
			bestCount = len(matched)
		}
	}

	if bestCount == 0 {
		det := Detection{Platform: constants.PlatformUnknown}
		for _, s := range GenericSignals {
			if s.Pattern.MatchString(text) {
				det.Matched = append(det.Matched, s.Name)
			}
		}
		if len(det.Matched) > 0 {
			det.Platform = constants.PlatformGeneric
			det.ConfidencePercent = int(math.Round(float64(len(det.Matched)) / float64(len(GenericSignals)) * 100))
		}
		d.logger.Info("platform.detect.none", "fallback", string(det.Platform), "matched", strings.Join(det.Matched, ","))
		return det, common.ErrNoPlatformSignals
	}
	best.Strength = StrengthWeak
	if bestCount >= d.cfg.ConfidentSignals {
		best.Strength = StrengthConfident
	}
	d.logger.Info("platform.detect.done",
		"platform", string(best.Platform),
		"confidence", best.ConfidencePercent,
		"strength", best.Strength.String(),
		"matched", strings.Join(best.Matched, ","),
	)
	return best, nil
}
