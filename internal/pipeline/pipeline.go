// Package pipeline runs one document through acquisition, page selection,
// platform detection, field extraction, scoring and the optional AI merge.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/confidence"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/fallback"
	"github.com/joseph-ayodele/invoice-extract/internal/fields"
	"github.com/joseph-ayodele/invoice-extract/internal/loader"
	"github.com/joseph-ayodele/invoice-extract/internal/pages"
	"github.com/joseph-ayodele/invoice-extract/internal/platform"
)

// DocumentLoader turns raw bytes into page text.
type DocumentLoader interface {
	Load(ctx context.Context, doc entity.RawDocument) (loader.Document, error)
}

type Config struct {
	AIFallbackEnabled bool
	FallbackTimeout   time.Duration // 0 = bounded by the collaborator client only

	Weights    pages.Weights
	Platform   platform.Config
	Confidence confidence.Config
}

// DefaultConfig enables the fallback and uses the default weights.
func DefaultConfig() Config {
	return Config{
		AIFallbackEnabled: true,
		Weights:           pages.DefaultWeights(),
		Confidence:        confidence.DefaultConfig(),
	}
}

type Pipeline struct {
	cfg        Config
	loader     DocumentLoader
	classifier *pages.Classifier
	detector   *platform.Detector
	scorer     *confidence.Scorer
	fallback   *fallback.Coordinator
	logger     *slog.Logger
}

// New wires a pipeline. ai may be nil, which disables the fallback.
func New(cfg Config, ld DocumentLoader, ai fallback.AIExtractor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Weights.ItemLineMinLen == 0 {
		cfg.Weights = pages.DefaultWeights()
	}
	scorer := confidence.NewScorer(cfg.Confidence)
	p := &Pipeline{
		cfg:        cfg,
		loader:     ld,
		classifier: pages.NewClassifier(cfg.Weights, logger),
		detector:   platform.NewDetector(cfg.Platform, logger),
		scorer:     scorer,
		logger:     logger,
	}
	if ai != nil {
		p.fallback = fallback.NewCoordinator(ai, scorer, logger)
	}
	return p
}

// Run extracts one document. Only unsupported or corrupt input, or a
// cancellation before any field was extracted, is returned as an error;
// everything else degrades the result and is listed in Warnings.
func (p *Pipeline) Run(ctx context.Context, doc entity.RawDocument) (entity.ExtractionResult, error) {
	start := time.Now()
	ctx, reqID := common.EnsureRequestID(ctx)
	log := p.logger.With("req_id", reqID)

	res := entity.ExtractionResult{Platform: constants.PlatformUnknown, Warnings: []string{}}

	loaded, err := p.loader.Load(ctx, doc)
	if err != nil {
		log.Error("pipeline.load.failed", "file", doc.FilenameHint, "err", err)
		return res, err
	}
	res.AcquisitionMethod = loaded.Method
	res.ExtractionMethod = loaded.Method
	res.PageCount = len(loaded.Pages)
	res.Warnings = append(res.Warnings, loaded.Warnings...)

	sel, err := p.classifier.Select(ctx, loaded.Pages)
	if err != nil {
		log.Warn("pipeline.select.canceled", "err", err)
		return res, fmt.Errorf("select page: %w", err)
	}
	res.SelectedPage = sel.Page.Index
	res.LowPageConfidence = sel.LowConfidence
	if res.PageCount > 1 {
		res.ExtractionMethod = constants.MethodMultiPageAnalysis
	}

	fullText := loaded.Text()
	det, err := p.detectPlatform(sel.Page.Text, fullText, res.PageCount > 1)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	}
	res.Platform = det.Platform
	res.PlatformConfidence = det.ConfidencePercent

	strategy := fields.ForPlatform(det.Platform)
	extracted := fields.Extract(strategy, sel.Page.Text)
	if res.PageCount > 1 {
		extracted = fillFromDocument(extracted, fields.Extract(strategy, fullText))
	}

	in := confidence.Input{
		Fields:            extracted,
		Platform:          det.Platform,
		Strength:          det.Strength,
		LowPageConfidence: sel.LowConfidence,
	}
	scored := p.scorer.Score(in)
	res.Warnings = append(res.Warnings, invalidFieldWarnings(extracted, scored)...)

	if scored.Insufficient && p.cfg.AIFallbackEnabled && p.fallback != nil {
		fctx, cancel := common.WithTimeout(ctx, p.cfg.FallbackTimeout)
		out := p.fallback.Enhance(fctx, doc, in, scored)
		cancel()
		res.Warnings = append(res.Warnings, out.Warnings...)
		if out.Merged {
			extracted = out.Fields
			scored = out.Confidence
			res.ExtractionMethod = constants.MethodAIFallback
		}
	}

	res.Fields = extracted
	res.ConfidenceScore = scored.Score
	res.Insufficient = scored.Insufficient
	res.Duration = time.Since(start)

	if err := ctx.Err(); err != nil && !hasAnyField(extracted) {
		log.Warn("pipeline.run.canceled", "err", err)
		return res, err
	}

	log.Info("pipeline.run.done",
		"file", doc.FilenameHint,
		"platform", string(res.Platform),
		"method", string(res.ExtractionMethod),
		"pages", res.PageCount,
		"selected_page", res.SelectedPage,
		"score", res.ConfidenceScore,
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// detectPlatform labels the selected page. A multi-page document whose page
// names no marketplace is checked as a whole, since headers and footers often
// sit on other pages.
func (p *Pipeline) detectPlatform(page, full string, multi bool) (platform.Detection, error) {
	det, err := p.detector.Detect(page)
	if !multi || slices.Contains(constants.KnownPlatforms, det.Platform) {
		return det, err
	}
	whole, werr := p.detector.Detect(full)
	if werr == nil || err != nil {
		return whole, werr
	}
	return det, err
}

// fillFromDocument takes document-wide identifiers for fields the selected
// page lacks. Product name and price always come from the selected page.
func fillFromDocument(page, doc entity.ExtractedFields) entity.ExtractedFields {
	if page.OrderID == nil {
		page.OrderID = doc.OrderID
	}
	if page.InvoiceNumber == nil {
		page.InvoiceNumber = doc.InvoiceNumber
	}
	if page.OrderDate == nil {
		page.OrderDate = doc.OrderDate
	}
	if page.InvoiceDate == nil {
		page.InvoiceDate = doc.InvoiceDate
	}
	if page.Vendor == nil {
		page.Vendor = doc.Vendor
	}
	if page.TaxCode == nil {
		page.TaxCode = doc.TaxCode
	}
	return page
}

func present(f entity.ExtractedFields) map[string]bool {
	return map[string]bool{
		confidence.FieldProductName: f.ProductName != nil,
		confidence.FieldOrderID:     f.OrderID != nil,
		confidence.FieldPrice:       f.Price != nil,
		confidence.FieldDate:        f.OrderDate != nil || f.InvoiceDate != nil,
		confidence.FieldVendor:      f.Vendor != nil,
		confidence.FieldTaxCode:     f.TaxCode != nil,
	}
}

func invalidFieldWarnings(f entity.ExtractedFields, r confidence.Result) []string {
	var out []string
	have := present(f)
	for _, name := range confidence.Checks {
		if have[name] && !r.Valid[name] {
			out = append(out, fmt.Sprintf("%v: %s", common.ErrFieldInvalid, name))
		}
	}
	return out
}

func hasAnyField(f entity.ExtractedFields) bool {
	for _, ok := range present(f) {
		if ok {
			return true
		}
	}
	return f.InvoiceNumber != nil
}
