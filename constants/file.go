package constants

import "strings"

// Format is the sniffed content class of an input document.
type Format string

const (
	PDF   Format = "PDF"
	IMAGE Format = "IMAGE"
)

// Supported MIME types, keyed to the format they load as.
var supportedMIME = map[string]Format{
	"application/pdf": PDF,
	"image/jpeg":      IMAGE,
	"image/png":       IMAGE,
}

// AllowedExtensions holds the file extensions picked up by directory scans.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without dot) is scanned by default.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MapMIMEToFormat returns the format for a sniffed MIME type, or "" when unsupported.
func MapMIMEToFormat(mime string) Format {
	return supportedMIME[mime]
}

// MapExtToFormat maps a filename extension to the format it claims to be.
// Only used to compare against sniffed content; never trusted on its own.
func MapExtToFormat(ext string) Format {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png":
		return IMAGE
	default:
		return ""
	}
}
