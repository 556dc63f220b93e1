package server

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/export"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
)

type fakeExtractor struct {
	gotName string
	gotID   string
}

func (f *fakeExtractor) Run(ctx context.Context, doc entity.RawDocument) (entity.ExtractionResult, error) {
	f.gotName = doc.FilenameHint
	f.gotID = common.RequestIDFromContext(ctx)
	if bytes.HasPrefix(doc.Bytes, []byte("junk")) {
		return entity.ExtractionResult{}, common.UnsupportedFormat("text/plain")
	}
	return entity.ExtractionResult{
		Platform:         constants.PlatformAmazon,
		ExtractionMethod: constants.MethodEmbeddedText,
		ConfidenceScore:  90,
		Fields:           entity.ExtractedFields{OrderID: entity.StrPtr("403-1234567-1234567")},
		Warnings:         []string{},
	}, nil
}

func dial(t *testing.T, svc ExtractionServer) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterExtractionServer(s, svc)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestExtract(t *testing.T) {
	db, err := repository.Open(context.Background(), repository.Config{DSN: filepath.Join(t.TempDir(), "r.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	repo := repository.NewExtractionRepository(db, nil)

	ex := &fakeExtractor{}
	c := dial(t, NewExtractionService(ex, repo, nil))

	ctx := metadata.AppendToOutgoingContext(context.Background(), MetadataFilename, "inv.pdf", MetadataRequestID, "req-42")
	out, err := c.Extract(ctx, []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, "inv.pdf", ex.gotName)
	assert.Equal(t, "req-42", ex.gotID)
	m := out.AsMap()
	assert.Equal(t, "AMAZON", m["platform"])
	assert.EqualValues(t, 90, m["confidence_score"])
	fields := m["fields"].(map[string]any)
	assert.Equal(t, "403-1234567-1234567", fields["order_id"])
	assert.Contains(t, fields, "product_name")
	assert.Nil(t, fields["product_name"])

	stored, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "inv.pdf", stored[0].SourcePath)

	xlsx, err := c.ExportRecent(context.Background(), 10)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(xlsx))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.Sheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExtract_Errors(t *testing.T) {
	c := dial(t, NewExtractionService(&fakeExtractor{}, nil, nil))

	tests := []struct {
		name string
		data []byte
		code codes.Code
	}{
		{"empty", nil, codes.InvalidArgument},
		{"unsupported", []byte("junk bytes"), codes.InvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Extract(context.Background(), tc.data)
			require.Error(t, err)
			assert.Equal(t, tc.code, status.Code(err))
		})
	}

	_, err := c.ExportRecent(context.Background(), 5)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}
