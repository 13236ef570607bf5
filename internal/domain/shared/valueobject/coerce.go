// Package valueobject holds the coercion rules that turn loosely typed upstream
// JSON values into the canonical scalar types used by the domain.
//
// Upstream payloads are decoded with json.Decoder.UseNumber, so numbers arrive as
// json.Number; values built in Go may also arrive as native numeric types.
package valueobject

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Fields is one decoded JSON object with unknown key names.
type Fields map[string]any

// Lookup returns the first value among keys that is present and not null,
// along with the key it was found under.
func (f Fields) Lookup(keys ...string) (any, string, bool) {
	for _, key := range keys {
		if v, ok := f[key]; ok && v != nil {
			return v, key, true
		}
	}
	return nil, "", false
}

// FirstIdentifier resolves the first key that yields a usable identifier.
func (f Fields) FirstIdentifier(keys ...string) (string, bool) {
	for _, key := range keys {
		if id, ok := Identifier(f[key]); ok {
			return id, true
		}
	}
	return "", false
}

// FirstText resolves the first key that yields non-blank text.
func (f Fields) FirstText(keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := Text(f[key]); ok {
			return s, true
		}
	}
	return "", false
}

// FirstDecimal resolves the first key that yields a parseable number.
func (f Fields) FirstDecimal(keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		if d, ok := Decimal(f[key]); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

// Decimal coerces a JSON number, numeric string or Go numeric value.
// Blank strings, NaN and infinities are rejected.
func Decimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return n, true
	case json.Number:
		return parseDecimal(n.String())
	case string:
		return parseDecimal(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint64:
		return parseDecimal(strconv.FormatUint(n, 10))
	default:
		return decimal.Zero, false
	}
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// NonNegativeDecimal is Decimal restricted to values >= 0.
func NonNegativeDecimal(v any) (decimal.Decimal, bool) {
	d, ok := Decimal(v)
	if !ok || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// MaxQuantity caps a line quantity; larger counts are clamped to it.
const MaxQuantity = math.MaxInt32

var maxQuantity = decimal.NewFromInt(MaxQuantity)

// Quantity coerces a count; fractional values are truncated and counts
// above MaxQuantity are clamped. Only values >= 1 are usable.
func Quantity(v any) (int, bool) {
	d, ok := Decimal(v)
	if !ok {
		return 0, false
	}
	if d.GreaterThan(maxQuantity) {
		return MaxQuantity, true
	}
	n := d.IntPart()
	if n < 1 {
		return 0, false
	}
	return int(n), true
}

// Identifier coerces a string or numeric identifier to its canonical string form.
// 7, 7.0 as a float, json.Number("7") and "7" all yield "7".
func Identifier(v any) (string, bool) {
	switch id := v.(type) {
	case nil:
		return "", false
	case string:
		id = strings.TrimSpace(id)
		return id, id != ""
	case json.Number:
		return id.String(), id.String() != ""
	case float64:
		if math.IsNaN(id) || math.IsInf(id, 0) {
			return "", false
		}
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(id), 'f', -1, 32), true
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	case int32:
		return strconv.FormatInt(int64(id), 10), true
	case uint64:
		return strconv.FormatUint(id, 10), true
	default:
		return "", false
	}
}

// Text coerces a string value; whitespace-only strings are treated as absent.
func Text(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
