package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name" validate:"required"`
	Kind string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(&sample{Name: "x"}))
	assert.NoError(t, Struct(sample{Name: "x", Kind: "a"}))

	err := Struct(&sample{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name required")

	err = Struct(&sample{Name: "x", Kind: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind oneof")

	assert.Error(t, Struct(nil))
	assert.Error(t, Struct("not a struct"))
}
