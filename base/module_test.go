package base_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/unet2d/base"
	"github.com/sugarme/unet2d/shape"
)

func TestDoubleConvShapes(t *testing.T) {
	tests := []struct {
		padding shape.Padding
		want    []int64
	}{
		{shape.Same, []int64{2, 8, 20, 24}},
		{shape.Valid, []int64{2, 8, 16, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.padding.String(), func(t *testing.T) {
			vs := nn.NewVarStore(gotch.CPU)
			d := base.NewDoubleConv(vs.Root(), 3, 8, tt.padding)

			x := ts.MustRand([]int64{2, 3, 20, 24}, gotch.Float, gotch.CPU)
			defer x.MustDrop()
			out := d.Forward(x)
			defer out.MustDrop()

			assert.Equal(t, tt.want, out.MustSize())
			for _, v := range out.Float64Values() {
				require.GreaterOrEqual(t, v, 0.0, "relu output")
			}
		})
	}
}

func TestDoubleConvParameters(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	d := base.NewDoubleConv(vs.Root(), 3, 8, shape.Same)

	params := d.Parameters()
	require.Len(t, params, 4)
	assert.Equal(t, "conv1.weight", params[0].Name)
	assert.Equal(t, []int64{8, 3, 3, 3}, params[0].Tensor.MustSize())
	assert.Equal(t, "conv2.bias", params[3].Name)
	assert.Equal(t, int64(8*3*9+8+8*8*9+8), base.Numel(params))
}

func TestUpConvDoubles(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	u := base.NewUpConv(vs.Root(), 8, 4)

	x := ts.MustRand([]int64{1, 8, 3, 5}, gotch.Float, gotch.CPU)
	defer x.MustDrop()
	out := u.Forward(x)
	defer out.MustDrop()

	assert.Equal(t, []int64{1, 4, 6, 10}, out.MustSize())
	assert.Equal(t, []int64{8, 4, 2, 2}, u.Ws.MustSize())
}

func TestSegmentationHeadBounded(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	h := base.NewSegmentationHead(vs.Root(), 4, 3)

	x := ts.MustRandn([]int64{1, 4, 6, 6}, gotch.Float, gotch.CPU).MustMul1(ts.FloatScalar(100), true)
	defer x.MustDrop()
	out := h.Forward(x)
	defer out.MustDrop()

	assert.Equal(t, []int64{1, 3, 6, 6}, out.MustSize())
	for _, v := range out.Float64Values() {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
}
