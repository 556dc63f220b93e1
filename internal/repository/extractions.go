package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
)

var ErrNotFound = errors.New("extraction not found")

// created_at is stored as fixed-width UTC text so it sorts in both dialects.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Extraction is one stored pipeline result.
type Extraction struct {
	ID          uuid.UUID
	SourcePath  string
	ContentHash string // hex sha256 of the input bytes
	Result      entity.ExtractionResult
	CreatedAt   time.Time
}

type ExtractionRepository interface {
	Save(ctx context.Context, sourcePath, contentHash string, res entity.ExtractionResult) (*Extraction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Extraction, error)
	GetByHash(ctx context.Context, contentHash string) (*Extraction, error)
	ListRecent(ctx context.Context, limit int) ([]*Extraction, error)
}

type extractionRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewExtractionRepository(db *DB, logger *slog.Logger) ExtractionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &extractionRepo{db: db, logger: logger}
}

func (r *extractionRepo) Save(ctx context.Context, sourcePath, contentHash string, res entity.ExtractionResult) (*Extraction, error) {
	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("%w: encode result: %v", common.ErrInternal, err)
	}
	row := &Extraction{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Result:      res,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = r.db.SQL.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO extractions (id, source_path, content_hash, platform, method, score, insufficient, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		row.ID.String(), sourcePath, contentHash,
		string(res.Platform), string(res.ExtractionMethod), res.ConfidenceScore, res.Insufficient,
		string(body), row.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		r.logger.Error("failed to save extraction", "source_path", sourcePath, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return row, nil
}

const selectColumns = `SELECT id, source_path, content_hash, result, created_at FROM extractions`

func (r *extractionRepo) GetByID(ctx context.Context, id uuid.UUID) (*Extraction, error) {
	return r.one(ctx, selectColumns+` WHERE id = ?`, id.String())
}

// GetByHash returns the latest extraction of identical input bytes.
func (r *extractionRepo) GetByHash(ctx context.Context, contentHash string) (*Extraction, error) {
	return r.one(ctx, selectColumns+` WHERE content_hash = ? ORDER BY created_at DESC LIMIT 1`, contentHash)
}

func (r *extractionRepo) ListRecent(ctx context.Context, limit int) ([]*Extraction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(selectColumns+` ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*Extraction
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *extractionRepo) one(ctx context.Context, q string, args ...any) (*Extraction, error) {
	e, err := scan(r.db.SQL.QueryRowContext(ctx, r.db.Rebind(q), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Extraction, error) {
	var (
		id, created, body string
		e                 Extraction
	)
	if err := s.Scan(&id, &e.SourcePath, &e.ContentHash, &body, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: bad id %q", common.ErrDatabase, id)
	}
	if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("%w: bad created_at %q", common.ErrDatabase, created)
	}
	if err := json.Unmarshal([]byte(body), &e.Result); err != nil {
		return nil, fmt.Errorf("%w: decode result: %v", common.ErrDatabase, err)
	}
	return &e, nil
}
