package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{float32(2), 2, true},
		{3, 3, true},
		{int64(4), 4, true},
		{true, 1, true},
		{"x", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9)
	}
}

func TestSliceAnyToString(t *testing.T) {
	assert.Equal(t, []string{"a", "12"}, SliceAnyToString([]any{"a", 12, struct{}{}}))
	assert.Equal(t, []string{"b"}, SliceAnyToString([]string{"b"}))
	assert.Nil(t, SliceAnyToString("a"))
	assert.Nil(t, SliceAnyToString(nil))
}

func TestConfigGet(t *testing.T) {
	m := map[string]any{"name": "x", "n": 3.0, "f": 2, "bad": "y"}

	assert.Equal(t, "x", ConfigGet(m, "name", ""))
	assert.Equal(t, "d", ConfigGet(m, "missing", "d"))
	assert.Equal(t, "d", ConfigGet(m, "n", "d"))
	assert.Equal(t, 3, ConfigGetInt(m, "n", 0))
	assert.Equal(t, 7, ConfigGetInt(m, "bad", 7))
	assert.InDelta(t, 2.0, ConfigGetFloat64(m, "f", 0), 1e-9)
	assert.InDelta(t, 0.5, ConfigGetFloat64(nil, "f", 0.5), 1e-9)
}
