package trade

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
)

// ParseItems accepts an item collection encoded either as a JSON string holding
// an array or as an already-decoded array.
//
// A nil collection is an empty list. Any other shape, or a string that does not
// decode to an array, yields no lines and an error wrapping ErrMalformedPayload.
// Array entries that are not objects are dropped; the remaining lines are
// returned together with an ErrMalformedPayload error.
func ParseItems(items any) ([]valueobject.Fields, error) {
	switch v := items.(type) {
	case nil:
		return nil, nil
	case string:
		decoded, err := decodeItemString(v)
		if err != nil {
			return nil, err
		}
		return collectLines(decoded)
	case []any:
		return collectLines(v)
	case []valueobject.Fields:
		return v, nil
	case []map[string]any:
		lines := make([]valueobject.Fields, 0, len(v))
		for _, m := range v {
			lines = append(lines, valueobject.Fields(m))
		}
		return lines, nil
	default:
		return nil, fmt.Errorf("%w: items field is %T", shared.ErrMalformedPayload, items)
	}
}

func decodeItemString(s string) ([]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: items string is blank", shared.ErrMalformedPayload)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: items string: %v", shared.ErrMalformedPayload, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: items string has trailing data", shared.ErrMalformedPayload)
	}
	arr, ok := decoded.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: items string holds %T, not an array", shared.ErrMalformedPayload, decoded)
	}
	return arr, nil
}

func collectLines(entries []any) ([]valueobject.Fields, error) {
	lines := make([]valueobject.Fields, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		switch m := entry.(type) {
		case map[string]any:
			lines = append(lines, valueobject.Fields(m))
		case valueobject.Fields:
			lines = append(lines, m)
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return lines, fmt.Errorf("%w: dropped %d non-object entries", shared.ErrMalformedPayload, dropped)
	}
	return lines, nil
}
