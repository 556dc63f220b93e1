package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

// PageImage is one raster handed to a recognition engine.
type PageImage struct {
	Index int
	Path  string
}

// Bytes reads the raster from disk.
func (p PageImage) Bytes() ([]byte, error) {
	return os.ReadFile(p.Path)
}

// Recognition is the output of one engine for one page. Confidence is 0..1,
// zero when the engine does not report one.
type Recognition struct {
	Text       string
	Confidence float32
}

// Recognizer turns a page image into text.
type Recognizer interface {
	Method() constants.ExtractionMethod
	Recognize(ctx context.Context, img PageImage) (Recognition, error)
}

// TesseractConfig configures the local recognition engine.
type TesseractConfig struct {
	Binary        string // default "tesseract"
	Lang          string // default "eng"
	TessdataDir   string
	PSM           int
	TSVConfidence bool
}

// Tesseract is the local recognition engine.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg TesseractConfig, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

func (t *Tesseract) Method() constants.ExtractionMethod { return constants.MethodLocalOCR }

func (t *Tesseract) args(path string) []string {
	args := []string{path, "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return args
}

func (t *Tesseract) Recognize(ctx context.Context, img PageImage) (Recognition, error) {
	start := time.Now()
	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, t.args(img.Path)...)
	if err != nil {
		return Recognition{}, fmt.Errorf("%w: tesseract: %v: %s", common.ErrRecognitionUnavailable, err, truncate(strings.TrimSpace(string(errb)), 256))
	}
	rec := Recognition{Text: string(out)}
	if t.cfg.TSVConfidence {
		if c, err := t.tsvConfidence(ctx, img.Path); err == nil {
			rec.Confidence = c
		} else {
			t.logger.Debug("loader.tesseract.tsv_failed", "page", img.Index, "error", err)
		}
	}
	t.logger.Debug("loader.tesseract.done",
		"page", img.Index,
		"chars", len(rec.Text),
		"confidence", rec.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

// tsvConfidence runs tesseract in TSV mode and returns the mean word confidence in 0..1.
func (t *Tesseract) tsvConfidence(ctx context.Context, path string) (float32, error) {
	out, _, err := t.runner.Run(ctx, t.cfg.Binary, append(t.args(path), "tsv")...)
	if err != nil {
		return 0, fmt.Errorf("tesseract tsv: %w", err)
	}
	return meanTSVConfidence(string(out)), nil
}

func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		conf := cols[10]
		if conf == "" || conf == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(conf, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}

var (
	reDate   = regexp.MustCompile(`\b\d{1,2}[-/. ](?:\d{1,2}|[a-z]{3,9})[-/. ](?:20)?\d{2}\b|\b20\d{2}-\d{2}-\d{2}\b`)
	reCurr   = regexp.MustCompile(`\b(?:inr|rs\.?|usd)\b|[₹$]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(?:,\d{2,3})*\.\d{2}\b|\b\d+\.\d{2}\b`)
)

// heuristicConfidence scores decoded text 0..1 by the invoice artifacts it carries.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2)
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.15
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// blendConfidence weights an engine confidence over the text heuristic when present.
func blendConfidence(engine float32, txt string) float32 {
	heur := heuristicConfidence(txt)
	if engine <= 0 {
		return heur
	}
	c := 0.7*engine + 0.3*heur
	if c > 1 {
		c = 1
	}
	return c
}
