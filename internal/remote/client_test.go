package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/loader"
)

var pdfBytes = []byte("%PDF-1.4\n%test\n")

// fileServer echoes what it received so tests can assert on the upload.
func fileServer(t *testing.T, path string, respond func(w http.ResponseWriter, filename, contentType string, body []byte)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(f)
		respond(w, hdr.Filename, hdr.Header.Get("Content-Type"), b)
	}))
}

func TestExtractText(t *testing.T) {
	var gotName, gotType string
	srv := fileServer(t, "/extract-text", func(w http.ResponseWriter, name, ct string, body []byte) {
		gotName, gotType = name, ct
		_ = json.NewEncoder(w).Encode(map[string]any{"text": "Grand Total 488.00", "confidence": 0.93})
	})
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/"}, nil)
	res, err := c.ExtractText(context.Background(), "inv.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, "Grand Total 488.00", res.Text)
	assert.InDelta(t, 0.93, res.Confidence, 0.0001)
	assert.Equal(t, "inv.pdf", gotName)
	assert.Equal(t, "application/pdf", gotType)
}

func TestExtractText_ServerErrorIsRecognitionUnavailable(t *testing.T) {
	srv := fileServer(t, "/extract-text", func(w http.ResponseWriter, _, _ string, _ []byte) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).ExtractText(context.Background(), "", pdfBytes)
	assert.ErrorIs(t, err, common.ErrRecognitionUnavailable)
}

func TestRecognizer(t *testing.T) {
	srv := fileServer(t, "/extract-text", func(w http.ResponseWriter, name, _ string, body []byte) {
		_ = json.NewEncoder(w).Encode(map[string]any{"text": name + ":" + string(body), "confidence": 0.5})
	})
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "page-1.png")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o600))

	r := Recognizer{Client: NewClient(Config{BaseURL: srv.URL}, nil)}
	assert.Equal(t, constants.MethodRemoteOCR, r.Method())
	rec, err := r.Recognize(context.Background(), loader.PageImage{Index: 0, Path: path})
	require.NoError(t, err)
	assert.Equal(t, "page-1.png:img", rec.Text)
	assert.InDelta(t, 0.5, rec.Confidence, 0.0001)
}

func TestExtractStructured(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		expected entity.AIFields
		wantErr  bool
	}{
		{
			name: "all fields",
			body: `{"product_name":"Boat Airdopes 141","order_id":"OD123456789012345678","invoice_number":"FAB123","total_amount":"1,299.00","purchase_date":"22-02-2024","retailer":"Flipkart"}`,
			expected: entity.AIFields{
				ProductName: "Boat Airdopes 141", OrderID: "OD123456789012345678", InvoiceNumber: "FAB123",
				TotalAmount: "1,299.00", PurchaseDate: "22-02-2024", Retailer: "Flipkart",
			},
		},
		{
			name:     "lenient on numbers nulls and unknown keys",
			body:     `{"product_name":"  Kettle  ","order_id":null,"total_amount":499.5,"model":"donut"}`,
			expected: entity.AIFields{ProductName: "Kettle", TotalAmount: "499.5"},
		},
		{name: "not an object", body: `["x"]`, wantErr: true},
		{name: "too long value", body: `{"product_name":"` + strings.Repeat("a", 600) + `"}`, wantErr: true},
		{name: "server error", body: `{"detail":"x"}`, status: http.StatusInternalServerError, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := fileServer(t, "/ai-structured-extract", func(w http.ResponseWriter, _, _ string, _ []byte) {
				if tc.status != 0 {
					w.WriteHeader(tc.status)
				}
				_, _ = io.WriteString(w, tc.body)
			})
			defer srv.Close()

			got, err := NewClient(Config{BaseURL: srv.URL}, nil).ExtractStructured(context.Background(), entity.RawDocument{Bytes: pdfBytes})
			if tc.wantErr {
				assert.ErrorIs(t, err, common.ErrAIServiceUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestExtractStructured_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(Config{BaseURL: url, Timeout: time.Second}, nil).ExtractStructured(context.Background(), entity.RawDocument{Bytes: pdfBytes})
	assert.ErrorIs(t, err, common.ErrAIServiceUnavailable)
}

func TestExtractStructured_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	start := time.Now()
	_, err := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil).ExtractStructured(context.Background(), entity.RawDocument{Bytes: pdfBytes})
	assert.ErrorIs(t, err, common.ErrAIServiceUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"running","service":"ai","version":"1.0.0","models":{"ocr":"paddle"}}`)
	}))
	defer srv.Close()

	h, err := NewClient(Config{BaseURL: srv.URL}, nil).Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "running", h.Status)
	assert.Equal(t, "paddle", h.Models["ocr"])
}
