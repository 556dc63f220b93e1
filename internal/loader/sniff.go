package loader

import (
	"log/slog"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

// Sniff classifies b by its leading bytes. The filename hint is only compared
// against the sniffed type and a disagreement is logged.
func Sniff(b []byte, hint string, logger *slog.Logger) (constants.Format, string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(b) == 0 {
		return "", "", common.UnsupportedFormat("empty document")
	}
	mt := mimetype.Detect(b)
	format := constants.Format("")
	for m := mt; m != nil; m = m.Parent() {
		if f := constants.MapMIMEToFormat(m.String()); f != "" {
			format = f
			break
		}
	}
	if format == "" {
		return "", mt.String(), common.UnsupportedFormat("content type " + mt.String())
	}
	if hint != "" {
		if claimed := constants.MapExtToFormat(filepath.Ext(hint)); claimed != format {
			logger.Warn("loader.sniff.hint_mismatch",
				"filename", hint,
				"sniffed", mt.String(),
				"claimed", string(claimed),
			)
		}
	}
	return format, mt.String(), nil
}
