package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type amountKind uint8

const (
	amountMissing amountKind = iota
	amountNumber
	amountText
	amountOther
)

// Amount is the amount field as stored: a number, a numeric string, or
// something else entirely. Value coerces it for aggregation.
type Amount struct {
	kind amountKind
	num  float64
	text string
	raw  json.RawMessage
}

func NumberAmount(f float64) Amount { return Amount{kind: amountNumber, num: f} }
func TextAmount(s string) Amount    { return Amount{kind: amountText, text: s} }

// AmountOf builds a numeric Amount from a decimal, the form written by record entry.
func AmountOf(d decimal.Decimal) Amount {
	return NumberAmount(d.InexactFloat64())
}

// Value returns the numeric value. Anything that does not parse counts as zero.
func (a Amount) Value() decimal.Decimal {
	switch a.kind {
	case amountNumber:
		if math.IsNaN(a.num) || math.IsInf(a.num, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(a.num)
	case amountText:
		d, err := decimal.NewFromString(strings.TrimSpace(a.text))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// ParseAmount parses a user-entered amount. It accepts dot or comma as the
// decimal separator and rejects zero, negative and malformed input.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case amountNumber:
		if math.IsNaN(a.num) || math.IsInf(a.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(a.num)
	case amountText:
		return json.Marshal(a.text)
	case amountOther:
		return a.raw, nil
	default:
		return []byte("null"), nil
	}
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = Amount{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAmount(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*a = NumberAmount(f)
		return nil
	}
	*a = Amount{kind: amountOther, raw: append(json.RawMessage(nil), data...)}
	return nil
}
