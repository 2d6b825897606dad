package encoder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/unet2d/encoder"
	"github.com/sugarme/unet2d/shape"
)

func TestSkipStackLIFO(t *testing.T) {
	s := encoder.NewSkipStack(3)
	for i := 1; i <= 3; i++ {
		s.Push(ts.MustZeros([]int64{int64(i)}, gotch.Float, gotch.CPU))
	}
	require.Equal(t, 3, s.Len())

	for want := int64(3); want >= 1; want-- {
		x, err := s.Pop()
		require.NoError(t, err)
		assert.Equal(t, []int64{want}, x.MustSize())
		x.MustDrop()
	}

	_, err := s.Pop()
	assert.ErrorIs(t, err, encoder.ErrSkipUnderflow)
	assert.Zero(t, s.Len())
}

func TestSkipStackDrop(t *testing.T) {
	s := encoder.NewSkipStack(2)
	s.Push(ts.MustZeros([]int64{2}, gotch.Float, gotch.CPU))
	s.Push(ts.MustZeros([]int64{2}, gotch.Float, gotch.CPU))
	s.Drop()
	assert.Zero(t, s.Len())
}

func TestContractionModule(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	m := encoder.NewContractionModule(vs.Root(), 3, 4, shape.Valid)

	x := ts.MustRand([]int64{2, 3, 15, 16}, gotch.Float, gotch.CPU)
	defer x.MustDrop()

	pooled, skip := m.Forward(x)
	defer pooled.MustDrop()
	defer skip.MustDrop()

	// 15x16 -> 11x12 after two valid convs; the odd row is dropped by pooling
	assert.Equal(t, []int64{2, 4, 11, 12}, skip.MustSize())
	assert.Equal(t, []int64{2, 4, 5, 6}, pooled.MustSize())
	assert.Len(t, m.Parameters(), 4)
}

func TestContractingPathSkips(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	path := encoder.NewContractingPath(vs.Root(), 3, 2, shape.Same)

	x := ts.MustRand([]int64{1, 3, 64, 32}, gotch.Float, gotch.CPU)
	defer x.MustDrop()

	deep, skips := path.ForwardSkips(x, false)
	defer deep.MustDrop()
	assert.Equal(t, []int64{1, 16, 4, 2}, deep.MustSize())
	require.Equal(t, shape.Depth, skips.Len())

	// deepest features come out first
	want := [][]int64{
		{1, 16, 8, 4},
		{1, 8, 16, 8},
		{1, 4, 32, 16},
		{1, 2, 64, 32},
	}
	for _, w := range want {
		skip, err := skips.Pop()
		require.NoError(t, err)
		assert.Equal(t, w, skip.MustSize())
		skip.MustDrop()
	}

	params := path.Parameters()
	assert.Len(t, params, 4*shape.Depth)
	assert.Equal(t, "down1.conv1.weight", params[0].Name)
	assert.Equal(t, "down4.conv2.bias", params[len(params)-1].Name)
}
