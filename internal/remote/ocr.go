package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/loader"
)

// TextResult is the body of POST /extract-text. Confidence is 0..1.
type TextResult struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
}

// ExtractText runs the remote recognition engine over one file.
func (c *Client) ExtractText(ctx context.Context, filename string, data []byte) (TextResult, error) {
	raw, status, err := c.postFile(ctx, "/extract-text", filename, data)
	if err != nil {
		return TextResult{}, fmt.Errorf("%w: extract-text (status %d): %v", common.ErrRecognitionUnavailable, status, err)
	}
	var out TextResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return TextResult{}, fmt.Errorf("%w: decode extract-text: %v", common.ErrRecognitionUnavailable, err)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		out.Confidence = 0
	}
	return out, nil
}

// Recognizer adapts the client to the loader's recognition chain.
type Recognizer struct {
	Client *Client
}

func (Recognizer) Method() constants.ExtractionMethod { return constants.MethodRemoteOCR }

func (r Recognizer) Recognize(ctx context.Context, img loader.PageImage) (loader.Recognition, error) {
	data, err := img.Bytes()
	if err != nil {
		return loader.Recognition{}, fmt.Errorf("read page image: %w", err)
	}
	res, err := r.Client.ExtractText(ctx, filepath.Base(img.Path), data)
	if err != nil {
		return loader.Recognition{}, err
	}
	return loader.Recognition{Text: res.Text, Confidence: res.Confidence}, nil
}
