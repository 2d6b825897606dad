package shape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sugarme/unet2d/shape"
)

func TestParsePadding(t *testing.T) {
	p, err := shape.ParsePadding(" Valid ")
	require.NoError(t, err)
	assert.Equal(t, shape.Valid, p)

	p, err = shape.ParsePadding("same")
	require.NoError(t, err)
	assert.Equal(t, shape.Same, p)

	_, err = shape.ParsePadding("full")
	assert.ErrorIs(t, err, shape.ErrInvalidConfig)
}

func TestPaddingConvExtent(t *testing.T) {
	assert.Equal(t, int64(1), shape.Same.ConvPad())
	assert.Equal(t, int64(0), shape.Valid.ConvPad())
	assert.Equal(t, int64(10), shape.DoubleConvExtent(10, shape.Same))
	assert.Equal(t, int64(6), shape.DoubleConvExtent(10, shape.Valid))
}

func TestPaddingYAML(t *testing.T) {
	var cfg struct {
		Padding shape.Padding `yaml:"padding"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("padding: valid\n"), &cfg))
	assert.Equal(t, shape.Valid, cfg.Padding)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, "padding: valid\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("padding: reflect\n"), &cfg))
}

func TestPaddingFlagValue(t *testing.T) {
	var p shape.Padding
	require.NoError(t, p.Set("valid"))
	assert.Equal(t, "valid", p.String())
	assert.Equal(t, "padding", p.Type())
	assert.Error(t, p.Set("causal"))
}
