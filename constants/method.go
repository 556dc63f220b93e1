package constants

// ExtractionMethod records how the text behind a result was obtained.
type ExtractionMethod string

// Stable values (these exact strings cross the output boundary).
const (
	MethodEmbeddedText      ExtractionMethod = "EMBEDDED_TEXT"
	MethodLocalOCR          ExtractionMethod = "LOCAL_OCR"
	MethodRemoteOCR         ExtractionMethod = "REMOTE_OCR"
	MethodMultiPageAnalysis ExtractionMethod = "MULTI_PAGE_ANALYSIS"
	MethodAIFallback        ExtractionMethod = "AI_FALLBACK"
)

// PageType is the classification of one document page.
type PageType string

const (
	PageService PageType = "SERVICE"
	PageProduct PageType = "PRODUCT"
	PageUnknown PageType = "UNKNOWN"
)
