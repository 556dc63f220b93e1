package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-extract/constants"
)

// AllowedExt checks if a file extension is in the allowed set (pdf/jpg/jpeg/png).
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
