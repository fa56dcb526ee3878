package metrics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyZone(t *testing.T) {
	tests := map[string]ZoneKind{
		"Fat Burn":     ZoneFatBurn,
		"FAT_BURN":     ZoneFatBurn,
		"Cardio":       ZoneCardio,
		"Peak":         ZonePeak,
		"Out of Range": ZoneOutOfRange,
		"OUT_OF_ZONE":  ZoneOutOfRange,
		"Custom Zone":  ZoneUnknown,
		"":             ZoneUnknown,
	}
	for name, want := range tests {
		assert.Equal(t, want, ClassifyZone(name), name)
	}
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{`"8123"`, 8123, true},
		{`" 4.62 "`, 4.62, true},
		{`1520`, 1520, true},
		{`0`, 0, true},
		{`"0"`, 0, true},
		{`""`, 0, false},
		{`"abc"`, 0, false},
		{`"NaN"`, 0, false},
		{`null`, 0, false},
		{`true`, 0, false},
		{`{}`, 0, false},
		{``, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			v, err := CoerceNumber(json.RawMessage(tc.raw))
			if !tc.ok {
				assert.ErrorIs(t, err, ErrNumericCoercion)
				assert.Nil(t, v)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, *v)
		})
	}
}

func TestParseVO2Max(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{"45-49", ptr(47)},
		{"46.5", ptr(46.5)},
		{"50", ptr(50)},
		{"44-45", ptr(44.5)},
		{"abc", nil},
		{"", nil},
		{"45 - 49", nil},
		{"45-", nil},
		{"-3", nil},
		{"46.", nil},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseVO2Max(tc.raw))
		})
	}
}

func ptr(v float64) *float64 { return &v }
