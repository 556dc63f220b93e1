// Package core runs stored-file extraction: read, deduplicate, extract, persist.
package core

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-extract/internal/async"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/export"
	"github.com/joseph-ayodele/invoice-extract/internal/ingest"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
)

// Extractor is the pipeline as seen by the processor.
type Extractor interface {
	Run(ctx context.Context, doc entity.RawDocument) (entity.ExtractionResult, error)
}

// Processor coordinates file ingest, extraction and the optional result store.
type Processor struct {
	logger    *slog.Logger
	ingestor  ingest.Ingestor
	extractor Extractor
	repo      repository.ExtractionRepository // nil = no persistence

	mu   sync.Mutex
	rows []export.Row
}

func NewProcessor(logger *slog.Logger, ing ingest.Ingestor, ex Extractor, repo repository.ExtractionRepository) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, ingestor: ing, extractor: ex, repo: repo}
}

// ProcessFile extracts one file. Identical bytes already in the store are
// not extracted again unless force is set. Rejected documents are recorded
// with their error and also returned.
func (p *Processor) ProcessFile(ctx context.Context, path string, force bool) (export.Row, error) {
	start := time.Now()
	in, err := p.ingestor.IngestPath(ctx, path)
	if err != nil {
		p.logger.Error("processor.ingest.failed", "path", path, "err", err)
		return p.record(export.Row{SourcePath: path, Err: err.Error()}), err
	}

	if p.repo != nil && !force {
		prev, err := p.repo.GetByHash(ctx, in.HashHex)
		switch {
		case err == nil:
			p.logger.Info("processor.dedup.hit", "path", in.SourcePath, "extraction_id", prev.ID)
			return p.record(export.Row{SourcePath: in.SourcePath, Result: prev.Result}), nil
		case !errors.Is(err, repository.ErrNotFound):
			p.logger.Warn("processor.dedup.lookup_failed", "path", in.SourcePath, "err", err)
		}
	}

	res, err := p.extractor.Run(ctx, entity.RawDocument{Bytes: in.Bytes, FilenameHint: in.SourcePath})
	if err != nil {
		p.logger.Error("processor.extract.failed", "path", in.SourcePath, "err", err)
		return p.record(export.Row{SourcePath: in.SourcePath, Err: err.Error()}), err
	}

	if p.repo != nil {
		if _, err := p.repo.Save(ctx, in.SourcePath, in.HashHex, res); err != nil {
			// the result is still reported; only persistence failed
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
	p.logger.Debug("processor.file.ok",
		"path", in.SourcePath,
		"platform", string(res.Platform),
		"score", res.ConfidenceScore,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return p.record(export.Row{SourcePath: in.SourcePath, Result: res}), nil
}

// Handle adapts ProcessFile to the worker queue.
func (p *Processor) Handle(ctx context.Context, job async.Job) error {
	_, err := p.ProcessFile(ctx, job.Path, job.Force)
	return err
}

// Rows returns everything processed so far, sorted by path.
func (p *Processor) Rows() []export.Row {
	p.mu.Lock()
	out := make([]export.Row, len(p.rows))
	copy(out, p.rows)
	p.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SourcePath < out[j].SourcePath })
	return out
}

func (p *Processor) record(r export.Row) export.Row {
	p.mu.Lock()
	p.rows = append(p.rows, r)
	p.mu.Unlock()
	return r
}
