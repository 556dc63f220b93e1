package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
)

// ExtractStructured asks the AI collaborator for the invoice fields of doc.
// Any transport, status or shape problem is reported as ErrAIServiceUnavailable.
func (c *Client) ExtractStructured(ctx context.Context, doc entity.RawDocument) (entity.AIFields, error) {
	start := time.Now()
	raw, status, err := c.postFile(ctx, "/ai-structured-extract", doc.FilenameHint, doc.Bytes)
	if err != nil {
		return entity.AIFields{}, fmt.Errorf("%w: ai-structured-extract (status %d): %v", common.ErrAIServiceUnavailable, status, err)
	}

	clean, changed, err := SanitizeStructured(raw)
	if err != nil {
		c.logger.Warn("remote.structured.sanitize_failed", "error", err)
		return entity.AIFields{}, fmt.Errorf("%w: %v", common.ErrAIServiceUnavailable, err)
	}
	if len(changed) > 0 {
		c.logger.Debug("remote.structured.sanitized", "changed", changed)
	}
	if err := ValidateStructured(clean); err != nil {
		c.logger.Warn("remote.structured.schema_invalid", "error", err)
		return entity.AIFields{}, fmt.Errorf("%w: %v", common.ErrAIServiceUnavailable, err)
	}

	var out entity.AIFields
	if err := json.Unmarshal(clean, &out); err != nil {
		return entity.AIFields{}, fmt.Errorf("%w: decode: %v", common.ErrAIServiceUnavailable, err)
	}
	c.logger.Info("remote.structured.done",
		"has_product", out.ProductName != "",
		"has_order_id", out.OrderID != "",
		"has_total", out.TotalAmount != "",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
