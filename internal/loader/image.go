package loader

import (
	"bytes"
	"context"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/preprocess"
)

// imageOCR enhances a photographed or scanned image and runs recognition on it.
type imageOCR struct {
	l *Loader
}

func (imageOCR) Name() string { return "image_ocr" }

func (a imageOCR) Acquire(ctx context.Context, src *Source) (Acquisition, error) {
	img, err := imaging.Decode(bytes.NewReader(src.Bytes), imaging.AutoOrientation(true))
	if err != nil {
		return Acquisition{Method: constants.MethodLocalOCR}, common.CorruptDocument("image decode failed", err)
	}
	q := preprocess.AssessQuality(img)
	level := q.Intensity()
	a.l.logger.Info("loader.image.quality",
		"width", q.Width,
		"height", q.Height,
		"score", q.Score,
		"intensity", level.String(),
	)

	enhanced, err := preprocess.EncodePNG(preprocess.Enhance(img, level))
	if err != nil {
		return Acquisition{Method: constants.MethodLocalOCR}, err
	}
	path, err := src.Scope.Write(".png", enhanced)
	if err != nil {
		return Acquisition{Method: constants.MethodLocalOCR}, err
	}
	acq := a.l.recognizeAll(ctx, []PageImage{{Index: 0, Path: path}})
	acq.Sufficient = true
	return acq, nil
}
