package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/unet2d/shape"
)

// UpConv is a 2x2 stride-2 transposed convolution that doubles spatial size.
// Weight layout is [cIn, cOut, 2, 2] as libtorch expects for conv_transpose2d.
type UpConv struct {
	Ws *ts.Tensor
	Bs *ts.Tensor
}

// NewUpConv creates an UpConv mapping cIn channels to cOut channels.
func NewUpConv(p *nn.Path, cIn, cOut int64) *UpConv {
	k := int64(shape.UpStride)
	return &UpConv{
		Ws: p.KaimingUniform("weight", []int64{cIn, cOut, k, k}),
		Bs: p.Zeros("bias", []int64{cOut}),
	}
}

// Forward upsamples x from [B cIn H W] to [B cOut 2H 2W].
func (u *UpConv) Forward(x *ts.Tensor) *ts.Tensor {
	k := int64(shape.UpStride)
	stride := []int64{k, k}
	zero := []int64{0, 0}
	return ts.MustConvTranspose2d(x, u.Ws, u.Bs, stride, zero, zero, 1, []int64{1, 1})
}

// Parameters returns the weight and bias.
func (u *UpConv) Parameters() []Parameter {
	return []Parameter{
		{Name: "weight", Tensor: u.Ws},
		{Name: "bias", Tensor: u.Bs},
	}
}
