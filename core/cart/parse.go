package cart

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Persisted cart data may have been written by older clients or edited by
// hand, so numeric fields are parsed leniently with these defaults:
//
//	field      missing  malformed  negative
//	unitPrice  0        0          0
//	quantity   1        0          0
//
// A zero quantity or price contributes nothing to totals.

// DefaultQuantity applies when an item has no quantity at all.
const DefaultQuantity = 1

// ParsePrice reads a unit price from a JSON number or numeric string.
func ParsePrice(raw json.RawMessage) decimal.Decimal {
	s, ok := scalar(raw)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseQuantity reads a whole, positive quantity from a JSON number or
// numeric string.
func ParseQuantity(raw json.RawMessage) int {
	if isMissing(raw) {
		return DefaultQuantity
	}
	s, ok := scalar(raw)
	if !ok {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || !d.IsPositive() {
		return 0
	}
	n, err := strconv.Atoi(d.String())
	if err != nil {
		return 0
	}
	return n
}

func isMissing(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// scalar returns the textual form of a JSON number or string.
func scalar(raw json.RawMessage) (string, bool) {
	if isMissing(raw) {
		return "", false
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", false
	}

	switch v := v.(type) {
	case json.Number:
		return v.String(), true
	case string:
		return string(bytes.TrimSpace([]byte(v))), true
	default:
		return "", false
	}
}
