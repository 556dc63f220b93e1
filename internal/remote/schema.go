package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// aiFieldKeys are the keys the structured-extraction endpoint answers with.
var aiFieldKeys = []string{"product_name", "order_id", "invoice_number", "total_amount", "purchase_date", "retailer"}

// BuildStructuredJSONSchema describes the sanitized structured-extraction response.
// Unknown keys are allowed; the service may add diagnostics.
func BuildStructuredJSONSchema() map[string]any {
	props := make(map[string]any, len(aiFieldKeys))
	for _, k := range aiFieldKeys {
		props[k] = map[string]any{"type": "string", "maxLength": 512}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"product_name", "order_id", "total_amount"},
	}
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func structuredSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(BuildStructuredJSONSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("structured.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("structured.json")
	})
	return schema, schemaErr
}

// ValidateStructured validates a sanitized response document.
func ValidateStructured(doc []byte) error {
	s, err := structuredSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// SanitizeStructured coerces the known keys to trimmed strings so that a
// sloppy but usable response still validates. Numbers become strings, null
// becomes "", missing keys are added empty. Unknown keys are left alone.
func SanitizeStructured(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: response is not an object")
	}

	var changed []string
	for _, k := range aiFieldKeys {
		v, ok := m[k]
		if !ok {
			m[k] = ""
			changed = append(changed, k+"(missing)")
			continue
		}
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") || s == "-" {
				s = ""
			}
			if s != t {
				changed = append(changed, k)
			}
			m[k] = s
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
			changed = append(changed, k+"(number)")
		case nil:
			m[k] = ""
			changed = append(changed, k+"(null)")
		default:
			m[k] = ""
			changed = append(changed, k+"(type)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, changed, nil
}
