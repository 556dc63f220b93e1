package ingest

import (
	"context"
	"time"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath string
	HashHex    string
	FileExt    string
	Size       int
	Bytes      []byte
	ReadAt     time.Time
	Err        string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// Ingestor is the behavior the batch runner depends on.
type Ingestor interface {
	// IngestPath reads a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory reads all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
