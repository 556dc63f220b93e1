package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/core"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/export"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
)

// MaxDocumentBytes bounds one Extract request.
const MaxDocumentBytes = 32 << 20

type ExtractionService struct {
	extractor core.Extractor
	repo      repository.ExtractionRepository // optional
	exporter  *export.Service
	logger    *slog.Logger
}

func NewExtractionService(ex core.Extractor, repo repository.ExtractionRepository, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{
		extractor: ex,
		repo:      repo,
		exporter:  export.NewService(repo, logger),
		logger:    logger,
	}
}

// Extract runs the pipeline on the request bytes. The filename hint and a
// request id may be passed as metadata.
func (s *ExtractionService) Extract(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	start := time.Now()
	data := in.GetValue()
	if len(data) == 0 {
		return nil, common.InvalidArgumentError("document bytes are required")
	}
	if len(data) > MaxDocumentBytes {
		return nil, common.InvalidArgumentErrorf("document is %d bytes, limit %d", len(data), MaxDocumentBytes)
	}

	filename := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(MetadataFilename); len(v) > 0 {
			filename = v[0]
		}
		if v := md.Get(MetadataRequestID); len(v) > 0 && v[0] != "" {
			ctx = common.WithRequestID(ctx, v[0])
		}
	}
	ctx, reqID := common.EnsureRequestID(ctx)

	res, err := s.extractor.Run(ctx, entity.RawDocument{Bytes: data, FilenameHint: filename})
	if err != nil {
		s.logger.Warn("server.extract.failed", "req_id", reqID, "file", filename, "err", err)
		if ctx.Err() != nil {
			return nil, status.FromContextError(ctx.Err()).Err()
		}
		return nil, common.ToStatus(err)
	}

	if s.repo != nil {
		sum := sha256.Sum256(data)
		if _, err := s.repo.Save(ctx, filename, hex.EncodeToString(sum[:]), res); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
	}

	out, err := toStruct(res)
	if err != nil {
		return nil, common.InternalErrorf("encode result: %v", err)
	}
	s.logger.Info("server.extract.ok",
		"req_id", reqID,
		"file", filename,
		"platform", string(res.Platform),
		"score", res.ConfidenceScore,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ExportRecent returns an XLSX workbook of the latest stored results.
func (s *ExtractionService) ExportRecent(ctx context.Context, in *wrapperspb.Int32Value) (*wrapperspb.BytesValue, error) {
	if s.repo == nil {
		return nil, status.Error(codes.FailedPrecondition, "no result store configured")
	}
	b, err := s.exporter.ExportRecentXLSX(ctx, int(in.GetValue()))
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		return nil, common.InternalError(err.Error())
	}
	return wrapperspb.Bytes(b), nil
}

// toStruct goes through JSON so the Struct carries the same keys, nulls
// included, as the JSON output.
func toStruct(res entity.ExtractionResult) (*structpb.Struct, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
