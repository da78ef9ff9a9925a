package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Mode  string `json:"mode" validate:"omitempty,oneof=a b"`
	Inner struct {
		Size int `koanf:"size" validate:"gte=1"`
	} `json:"inner"`
}

func TestStruct(t *testing.T) {
	ok := sample{Name: "x", Mode: "a"}
	ok.Inner.Size = 1
	require.NoError(t, Struct(ok))

	tests := []struct {
		name  string
		in    func() sample
		field string
	}{
		{"required", func() sample { s := ok; s.Name = ""; return s }, "name"},
		{"oneof", func() sample { s := ok; s.Mode = "z"; return s }, "mode"},
		{"nested", func() sample { s := ok; s.Inner.Size = 0; return s }, "inner.size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in())
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
			assert.Equal(t, tt.field, core.GetDomainError(err).Field)
		})
	}
}
