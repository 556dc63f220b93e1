package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
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
)

type stubRunner struct {
	calls []string
	run   func(name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	return s.run(name, args)
}

type stubRecognizer struct {
	method constants.ExtractionMethod
	text   string
	conf   float32
	err    error
	calls  int
}

func (s *stubRecognizer) Method() constants.ExtractionMethod { return s.method }

func (s *stubRecognizer) Recognize(_ context.Context, img PageImage) (Recognition, error) {
	s.calls++
	if s.err != nil {
		return Recognition{}, s.err
	}
	return Recognition{Text: s.text, Confidence: s.conf}, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := uint8(255)
			if (x/10+y/10)%2 == 0 {
				c = 20
			}
			img.Set(x, y, color.RGBA{R: c, G: c, B: c, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestLoader(t *testing.T, runner Runner, opts ...Option) (*Loader, *TempArea) {
	t.Helper()
	area, err := NewTempArea(t.TempDir(), nil)
	require.NoError(t, err)
	opts = append([]Option{WithRunner(runner)}, opts...)
	return New(Config{}, area, nil, opts...), area
}

func assertAreaEmpty(t *testing.T, area *TempArea) {
	t.Helper()
	entries, err := os.ReadDir(area.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "run scope must be removed")
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		hint    string
		format  constants.Format
		wantErr bool
	}{
		{name: "pdf magic", data: []byte("%PDF-1.4\n%garbage"), hint: "a.pdf", format: constants.PDF},
		{name: "png ignores misleading hint", data: pngBytes(t, 4, 4), hint: "invoice.pdf", format: constants.IMAGE},
		{name: "plain text", data: []byte("hello there"), hint: "a.pdf", wantErr: true},
		{name: "empty", data: nil, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, _, err := Sniff(tc.data, tc.hint, nil)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, common.ErrUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.format, f)
		})
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	l, area := newTestLoader(t, &stubRunner{run: func(string, []string) ([]byte, []byte, error) { return nil, nil, nil }})
	_, err := l.Load(context.Background(), entity.RawDocument{Bytes: []byte("just some words"), FilenameHint: "x.pdf"})
	require.Error(t, err)
	assert.True(t, common.IsFatal(err))
	assertAreaEmpty(t, area)
}

func TestLoad_CorruptPDF(t *testing.T) {
	runner := &stubRunner{run: func(name string, _ []string) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error"), errors.New("exit status 1")
	}}
	l, area := newTestLoader(t, runner)

	_, err := l.Load(context.Background(), entity.RawDocument{Bytes: []byte("%PDF-1.4\nnot really a pdf")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrCorruptDocument))
	assert.Equal(t, []string{"pdftotext", "pdftoppm"}, runner.calls)
	assertAreaEmpty(t, area)
}

func TestLoad_ScannedPDFUsesRecognizersInOrder(t *testing.T) {
	page := pngBytes(t, 8, 8)
	runner := &stubRunner{run: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("\f\f"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, n := range []string{"1", "2", "10"} {
				if err := os.WriteFile(prefix+"-"+n+".png", page, 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		}
		return nil, nil, errors.New("unexpected " + name)
	}}
	remote := &stubRecognizer{method: constants.MethodRemoteOCR, err: common.ErrRecognitionUnavailable}
	local := &stubRecognizer{method: constants.MethodLocalOCR, text: "Grand Total ₹488.00", conf: 0.9}
	l, area := newTestLoader(t, runner, WithRecognizers(remote, local))

	doc, err := l.Load(context.Background(), entity.RawDocument{Bytes: []byte("%PDF-1.4\nscan")})
	require.NoError(t, err)
	assert.Equal(t, constants.MethodLocalOCR, doc.Method)
	require.Len(t, doc.Pages, 3)
	for i, p := range doc.Pages {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, "Grand Total ₹488.00", p.Text)
	}
	assert.Equal(t, 3, remote.calls)
	assert.NotEmpty(t, doc.Warnings)
	assert.Greater(t, doc.Confidence, float32(0.5))
	assertAreaEmpty(t, area)
}

func TestLoad_RasterUsesConfiguredDPI(t *testing.T) {
	var dpi string
	runner := &stubRunner{run: func(name string, args []string) ([]byte, []byte, error) {
		if name == "pdftoppm" {
			dpi = args[1]
			return nil, nil, errors.New("boom")
		}
		return []byte("short"), nil, nil
	}}
	area, err := NewTempArea(t.TempDir(), nil)
	require.NoError(t, err)
	l := New(Config{DPI: 150}, area, nil, WithRunner(runner))

	doc, err := l.Load(context.Background(), entity.RawDocument{Bytes: []byte("%PDF-1.4\nx")})
	require.NoError(t, err, "short embedded text is still returned when rasterization fails")
	assert.Equal(t, "400", dpi)
	assert.Equal(t, constants.MethodEmbeddedText, doc.Method)
	assert.Equal(t, "short", doc.Text())
}

func TestLoad_ImageAllEnginesDown(t *testing.T) {
	remote := &stubRecognizer{method: constants.MethodRemoteOCR, err: common.ErrRecognitionUnavailable}
	local := &stubRecognizer{method: constants.MethodLocalOCR, err: common.ErrRecognitionUnavailable}
	l, area := newTestLoader(t, &stubRunner{}, WithRecognizers(remote, local))

	doc, err := l.Load(context.Background(), entity.RawDocument{Bytes: pngBytes(t, 64, 64), FilenameHint: "photo.jpg"})
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Empty(t, doc.Pages[0].Text)
	assert.Len(t, doc.Warnings, 2)
	assertAreaEmpty(t, area)
}

func TestLoad_CorruptImage(t *testing.T) {
	l, _ := newTestLoader(t, &stubRunner{})
	data := pngBytes(t, 16, 16)[:40]
	_, err := l.Load(context.Background(), entity.RawDocument{Bytes: data})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrCorruptDocument))
}

type fixedAcquirer struct {
	name string
	acq  Acquisition
	err  error
	ran  *[]string
}

func (f fixedAcquirer) Name() string { return f.name }

func (f fixedAcquirer) Acquire(context.Context, *Source) (Acquisition, error) {
	*f.ran = append(*f.ran, f.name)
	return f.acq, f.err
}

func TestRunChain(t *testing.T) {
	page := func(s string) []entity.PageText { return []entity.PageText{entity.NewPageText(0, s)} }

	t.Run("first sufficient step wins", func(t *testing.T) {
		var ran []string
		l, _ := newTestLoader(t, &stubRunner{})
		chain := []Acquirer{
			fixedAcquirer{name: "a", acq: Acquisition{Pages: page(strings.Repeat("x", 300)), Method: constants.MethodEmbeddedText, Sufficient: true}, ran: &ran},
			fixedAcquirer{name: "b", ran: &ran},
		}
		acq, _, err := l.runChain(context.Background(), chain, &Source{})
		require.NoError(t, err)
		assert.Equal(t, constants.MethodEmbeddedText, acq.Method)
		assert.Equal(t, []string{"a"}, ran)
	})

	t.Run("insufficient steps keep the richest text", func(t *testing.T) {
		var ran []string
		l, _ := newTestLoader(t, &stubRunner{})
		chain := []Acquirer{
			fixedAcquirer{name: "a", acq: Acquisition{Pages: page("some text"), Method: constants.MethodEmbeddedText}, ran: &ran},
			fixedAcquirer{name: "b", acq: Acquisition{Pages: page(""), Method: constants.MethodLocalOCR}, ran: &ran},
		}
		acq, _, err := l.runChain(context.Background(), chain, &Source{})
		require.NoError(t, err)
		assert.Equal(t, constants.MethodEmbeddedText, acq.Method)
		assert.Equal(t, []string{"a", "b"}, ran)
	})

	t.Run("cancelled before any step", func(t *testing.T) {
		var ran []string
		l, _ := newTestLoader(t, &stubRunner{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := l.runChain(ctx, []Acquirer{fixedAcquirer{name: "a", ran: &ran}}, &Source{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, ran)
	})
}

func TestSweeper(t *testing.T) {
	area, err := NewTempArea(t.TempDir(), nil)
	require.NoError(t, err)
	old := filepath.Join(area.Root(), "run-old")
	fresh := filepath.Join(area.Root(), "run-fresh")
	require.NoError(t, os.Mkdir(old, 0o700))
	require.NoError(t, os.Mkdir(fresh, 0o700))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	s := NewSweeper(area, time.Hour, time.Minute)
	n, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh)
}

func TestMeanTSVConfidence(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tGrand\n" +
		"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\tTotal\n"
	assert.InDelta(t, 0.8, meanTSVConfidence(tsv), 0.0001)
	assert.Zero(t, meanTSVConfidence(""))
}

func TestTesseract_Args(t *testing.T) {
	var got []string
	runner := &stubRunner{run: func(_ string, args []string) ([]byte, []byte, error) {
		got = args
		return []byte("text"), nil, nil
	}}
	tess := NewTesseract(TesseractConfig{Lang: "eng+hin", TessdataDir: "/td"}, runner, nil)
	rec, err := tess.Recognize(context.Background(), PageImage{Path: "/p.png"})
	require.NoError(t, err)
	assert.Equal(t, "text", rec.Text)
	assert.Equal(t, []string{"/p.png", "stdout", "-l", "eng+hin", "--tessdata-dir", "/td"}, got)
}

func TestTesseract_FailureIsRecognitionUnavailable(t *testing.T) {
	runner := &stubRunner{run: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("not found"), errors.New("exec: not found")
	}}
	_, err := NewTesseract(TesseractConfig{}, runner, nil).Recognize(context.Background(), PageImage{Path: "/p.png"})
	assert.ErrorIs(t, err, common.ErrRecognitionUnavailable)
}

func TestHeuristicConfidence(t *testing.T) {
	assert.InDelta(t, 0.2, heuristicConfidence(""), 0.0001)
	rich := "Invoice Date 22-02-2024 Grand Total ₹ 1,249.00 " + strings.Repeat("item ", 30)
	assert.InDelta(t, 0.8, heuristicConfidence(rich), 0.0001)
	assert.InDelta(t, 0.7*0.5+0.3*0.2, blendConfidence(0.5, ""), 0.0001)
}
