package fields

import (
	"github.com/joseph-ayodele/invoice-extract/constants"
)

// Generic handles invoices from sellers without a dedicated strategy. Order
// ids are read from a label, falling back to the marketplace shapes.
type Generic struct{ base }

func (Generic) Platform() constants.Platform { return constants.PlatformGeneric }

func (Generic) ExtractOrderID(text string) *string {
	if id, ok := amazonOrderID(text); ok {
		return &id
	}
	if id, ok := flipkartOrderID(text); ok {
		return &id
	}
	return found(genericOrderID(text))
}
