// Package loader turns raw invoice bytes into per-page text.
//
// Content is sniffed, never trusted from the filename. PDFs with a usable text
// layer are read directly; otherwise pages are rasterized and handed to the
// configured recognition engines in order. Images are enhanced first. Every
// scratch file lives in a per-run scope that is removed before Load returns.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/preprocess"
)

type Config struct {
	Pdftotext string // default "pdftotext"
	Pdftoppm  string // default "pdftoppm"

	DPI                int // clamped to common.MinRasterDPI
	TextNativeMinChars int // embedded text above this many chars skips recognition
	MaxPages           int // 0 = no limit
}

// Source is the input shared by the acquirers of one run.
type Source struct {
	Bytes  []byte
	Format constants.Format
	Path   string // Bytes written to the run scope
	Scope  *Scope
}

// Acquisition is the outcome of one acquisition step.
type Acquisition struct {
	Pages      []entity.PageText
	Method     constants.ExtractionMethod
	Confidence float32 // 0..1
	Warnings   []string
	Sufficient bool // later steps are skipped
}

func (a Acquisition) chars() int {
	n := 0
	for _, p := range a.Pages {
		n += p.Length
	}
	return n
}

// Acquirer is one step of an acquisition chain.
type Acquirer interface {
	Name() string
	Acquire(ctx context.Context, src *Source) (Acquisition, error)
}

// Document is the loaded text of one input.
type Document struct {
	Format     constants.Format
	MIME       string
	Pages      []entity.PageText
	Method     constants.ExtractionMethod
	Confidence float32
	Warnings   []string
}

// Text joins all pages with form feeds.
func (d Document) Text() string { return entity.JoinPages(d.Pages) }

type Loader struct {
	cfg         Config
	temp        *TempArea
	recognizers []Recognizer
	runner      Runner
	logger      *slog.Logger
	chains      map[constants.Format][]Acquirer
}

type Option func(*Loader)

// WithRunner replaces the command runner used for pdftotext and pdftoppm.
func WithRunner(r Runner) Option {
	return func(l *Loader) { l.runner = r }
}

// WithRecognizers sets the recognition engines, most preferred first.
func WithRecognizers(rs ...Recognizer) Option {
	return func(l *Loader) { l.recognizers = rs }
}

// WithChain overrides the acquisition chain for a format.
func WithChain(f constants.Format, chain ...Acquirer) Option {
	return func(l *Loader) { l.chains[f] = chain }
}

func New(cfg Config, temp *TempArea, logger *slog.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI < common.MinRasterDPI {
		cfg.DPI = common.MinRasterDPI
	}
	if cfg.TextNativeMinChars <= 0 {
		cfg.TextNativeMinChars = 200
	}
	l := &Loader{
		cfg:    cfg,
		temp:   temp,
		runner: ExecRunner{Logger: logger},
		logger: logger,
		chains: map[constants.Format][]Acquirer{},
	}
	l.chains[constants.PDF] = []Acquirer{embeddedText{l}, rasterOCR{l}}
	l.chains[constants.IMAGE] = []Acquirer{imageOCR{l}}
	for _, o := range opts {
		o(l)
	}
	if len(l.recognizers) == 0 {
		l.recognizers = []Recognizer{NewTesseract(TesseractConfig{}, l.runner, logger)}
	}
	return l
}

// Load sniffs doc and runs the acquisition chain for its format. Only
// unsupported or corrupt input is an error; engine failures become warnings.
func (l *Loader) Load(ctx context.Context, doc entity.RawDocument) (Document, error) {
	start := time.Now()
	format, mime, err := Sniff(doc.Bytes, doc.FilenameHint, l.logger)
	if err != nil {
		l.logger.Warn("loader.sniff.rejected", "filename", doc.FilenameHint, "mime", mime)
		return Document{}, err
	}

	scope, err := l.temp.NewScope()
	if err != nil {
		return Document{}, common.WrapError(err, "loader")
	}
	defer scope.Cleanup()

	ext := ".pdf"
	if format == constants.IMAGE {
		ext = ".img"
	}
	path, err := scope.Write(ext, doc.Bytes)
	if err != nil {
		return Document{}, common.WrapError(err, "loader")
	}
	src := &Source{Bytes: doc.Bytes, Format: format, Path: path, Scope: scope}

	acq, warnings, err := l.runChain(ctx, l.chains[format], src)
	if err != nil {
		return Document{}, err
	}
	out := Document{
		Format:     format,
		MIME:       mime,
		Pages:      acq.Pages,
		Method:     acq.Method,
		Confidence: acq.Confidence,
		Warnings:   warnings,
	}
	l.logger.Info("loader.load.done",
		"format", string(format),
		"method", string(out.Method),
		"pages", len(out.Pages),
		"chars", acq.chars(),
		"warnings", len(warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// runChain returns the first sufficient acquisition, else the one carrying the
// most text. It fails only when no step produced anything.
func (l *Loader) runChain(ctx context.Context, chain []Acquirer, src *Source) (Acquisition, []string, error) {
	var (
		best     Acquisition
		have     bool
		warnings []string
		firstErr error
	)
	for _, a := range chain {
		if err := ctx.Err(); err != nil {
			if have {
				break
			}
			return Acquisition{}, warnings, err
		}
		acq, err := a.Acquire(ctx, src)
		warnings = append(warnings, acq.Warnings...)
		if err != nil {
			l.logger.Warn("loader.acquire.failed", "step", a.Name(), "error", err)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if have {
					break
				}
				return Acquisition{}, warnings, err
			}
			if firstErr == nil {
				firstErr = err
			}
			warnings = append(warnings, fmt.Sprintf("%s: %v", a.Name(), err))
			continue
		}
		if !have || acq.chars() >= best.chars() {
			best, have = acq, true
		}
		if acq.Sufficient {
			best = acq
			break
		}
	}
	if !have {
		if firstErr == nil {
			firstErr = common.CorruptDocument("no acquisition step for "+string(src.Format), nil)
		}
		if !common.IsFatal(firstErr) {
			firstErr = common.CorruptDocument("document unreadable", firstErr)
		}
		return Acquisition{}, warnings, firstErr
	}
	return best, warnings, nil
}

// recognizeAll runs the recognizers over every image. The first engine that
// returns text wins a page; engine failures are kept as warnings.
func (l *Loader) recognizeAll(ctx context.Context, images []PageImage) Acquisition {
	acq := Acquisition{Method: l.recognizers[len(l.recognizers)-1].Method()}
	var methodSet bool
	var confSum float32
	for _, img := range images {
		text, method, conf, warns := l.recognizePage(ctx, img)
		acq.Warnings = append(acq.Warnings, warns...)
		if text != "" && !methodSet {
			acq.Method, methodSet = method, true
		}
		confSum += conf
		acq.Pages = append(acq.Pages, entity.NewPageText(img.Index, text))
	}
	if len(images) > 0 {
		acq.Confidence = confSum / float32(len(images))
	}
	return acq
}

func (l *Loader) recognizePage(ctx context.Context, img PageImage) (string, constants.ExtractionMethod, float32, []string) {
	var warns []string
	for _, r := range l.recognizers {
		if ctx.Err() != nil {
			break
		}
		rec, err := r.Recognize(ctx, img)
		if err != nil {
			l.logger.Warn("loader.recognize.failed", "engine", string(r.Method()), "page", img.Index, "error", err)
			warns = append(warns, fmt.Sprintf("page %d %s: %v", img.Index, strings.ToLower(string(r.Method())), err))
			continue
		}
		text := preprocess.Normalize(rec.Text)
		if text == "" {
			warns = append(warns, fmt.Sprintf("page %d %s: no text", img.Index, strings.ToLower(string(r.Method()))))
			continue
		}
		return text, r.Method(), blendConfidence(rec.Confidence, text), warns
	}
	return "", "", 0, warns
}
