package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/preprocess"
)

// embeddedText reads the structural text layer of a PDF.
type embeddedText struct {
	l *Loader
}

func (embeddedText) Name() string { return "embedded_text" }

func (a embeddedText) Acquire(ctx context.Context, src *Source) (Acquisition, error) {
	start := time.Now()
	acq := Acquisition{Method: constants.MethodEmbeddedText}

	pages, err := readPDFText(src.Bytes)
	if err != nil {
		a.l.logger.Warn("loader.pdf.library_failed", "error", err)
		acq.Warnings = append(acq.Warnings, "pdf library: "+err.Error())
		pages, err = a.pdftotext(ctx, src.Path)
		if err != nil {
			return acq, common.CorruptDocument("no readable text layer", err)
		}
	}

	total := 0
	for i, p := range pages {
		p = preprocess.Normalize(p)
		total += len([]rune(p))
		acq.Pages = append(acq.Pages, entity.NewPageText(i, p))
	}
	acq.Sufficient = total > a.l.cfg.TextNativeMinChars
	if acq.Sufficient {
		acq.Confidence = 1
	}
	a.l.logger.Info("loader.pdf.embedded_text",
		"pages", len(acq.Pages),
		"chars", total,
		"sufficient", acq.Sufficient,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return acq, nil
}

// readPDFText extracts plain text per page. The library panics on some
// malformed inputs, so panics are turned into errors.
func readPDFText(b []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parse panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, err
	}
	n := r.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

func (a embeddedText) pdftotext(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := a.l.runner.Run(ctx, a.l.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 256))
	}
	pages := strings.Split(strings.TrimSuffix(string(out), "\f"), "\f")
	return pages, nil
}

// rasterOCR renders every PDF page and runs recognition on it.
type rasterOCR struct {
	l *Loader
}

func (rasterOCR) Name() string { return "raster_ocr" }

func (a rasterOCR) Acquire(ctx context.Context, src *Source) (Acquisition, error) {
	images, err := a.rasterize(ctx, src)
	if err != nil {
		return Acquisition{Method: constants.MethodLocalOCR}, err
	}
	acq := a.l.recognizeAll(ctx, images)
	acq.Sufficient = true
	return acq, nil
}

func (a rasterOCR) rasterize(ctx context.Context, src *Source) ([]PageImage, error) {
	start := time.Now()
	dir, err := os.MkdirTemp(src.Scope.Dir(), "pages-*")
	if err != nil {
		return nil, fmt.Errorf("create raster dir: %w", err)
	}
	prefix := filepath.Join(dir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <dir/page>
	_, errb, err := a.l.runner.Run(ctx, a.l.cfg.Pdftoppm, "-r", strconv.Itoa(a.l.cfg.DPI), "-png", src.Path, prefix)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.CorruptDocument("rasterization failed", fmt.Errorf("pdftoppm: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 256)))
	}
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(matches, func(i, j int) bool { return pageNumber(matches[i]) < pageNumber(matches[j]) })
	if a.l.cfg.MaxPages > 0 && len(matches) > a.l.cfg.MaxPages {
		matches = matches[:a.l.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, common.CorruptDocument("rasterization produced no pages", nil)
	}
	images := make([]PageImage, len(matches))
	for i, m := range matches {
		images[i] = PageImage{Index: i, Path: m}
	}
	a.l.logger.Info("loader.pdf.rasterized",
		"pages", len(images),
		"dpi", a.l.cfg.DPI,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return images, nil
}

// pageNumber parses N from ".../page-N.png"; pdftoppm zero-pads only for long documents.
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	i := strings.LastIndexByte(base, '-')
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return 0
	}
	return n
}
