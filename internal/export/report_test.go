package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
)

func TestWriteXLSX(t *testing.T) {
	price := decimal.RequireFromString("488.50")
	rows := []Row{
		{
			SourcePath: "/in/flipkart.pdf",
			Result: entity.ExtractionResult{
				Platform:         constants.PlatformFlipkart,
				ExtractionMethod: constants.MethodEmbeddedText,
				ConfidenceScore:  100,
				Fields: entity.ExtractedFields{
					ProductName: entity.StrPtr("Electric Jug(heater) Pigeon Favourite Electric"),
					OrderID:     entity.StrPtr("OD430543585270089100"),
					Price:       &price,
				},
				Warnings: []string{"a", "b"},
			},
		},
		{SourcePath: "/in/notes.txt", Err: "unsupported format"},
	}

	b, err := NewService(nil, nil).WriteXLSX(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(Sheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, headers, got[0])
	assert.Equal(t, "/in/flipkart.pdf", got[1][0])
	assert.Equal(t, "FLIPKART", got[1][1])
	assert.Equal(t, "OD430543585270089100", got[1][5])
	assert.Equal(t, "488.5", got[1][9])
	assert.Equal(t, "a; b", got[1][12])
	assert.Equal(t, "unsupported format", got[2][12])
}

func TestExportRecentXLSX_NoStore(t *testing.T) {
	_, err := NewService(nil, nil).ExportRecentXLSX(context.Background(), 10)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "₹₹…", truncate("₹₹₹₹", 3))
}
