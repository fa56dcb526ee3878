package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrNumericCoercion is returned when a value is neither a JSON number nor a
// numeric string. Callers treat the field as absent.
var ErrNumericCoercion = errors.New("value is not numeric")

var (
	vo2PlainRe = regexp.MustCompile(`^\d+(\.\d+)?$`)
	vo2RangeRe = regexp.MustCompile(`^(\d+)-(\d+)$`)
)

// CoerceNumber accepts a JSON number or a string holding one. Fitbit's
// activity time series report values as strings.
func CoerceNumber(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrNumericCoercion
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, ErrNumericCoercion
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, ErrNumericCoercion
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrNumericCoercion
		}
		return &v, nil
	}

	return strictNumber(raw)
}

// strictNumber accepts only a JSON number.
func strictNumber(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return nil, ErrNumericCoercion
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, ErrNumericCoercion
	}
	return &v, nil
}

// number is strictNumber without the error, for optional fields.
func number(raw json.RawMessage) *float64 {
	v, _ := strictNumber(raw)
	return v
}

// ParseVO2Max reads a cardio score: a plain number ("46.5") or a range
// ("45-49", merged to its midpoint). Anything else is absent.
func ParseVO2Max(raw string) *float64 {
	if vo2PlainRe.MatchString(raw) {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return &v
	}
	if m := vo2RangeRe.FindStringSubmatch(raw); m != nil {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return nil
		}
		v := (lo + hi) / 2
		return &v
	}
	return nil
}
