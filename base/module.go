package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/unet2d/shape"
)

// Parameter is a named trainable tensor owned by a module.
type Parameter struct {
	Name   string
	Tensor *ts.Tensor
}

// Prefix returns params with every name prefixed by scope.
func Prefix(scope string, params []Parameter) []Parameter {
	out := make([]Parameter, len(params))
	for i, p := range params {
		out[i] = Parameter{Name: scope + "." + p.Name, Tensor: p.Tensor}
	}
	return out
}

// Numel counts the scalar elements of params.
func Numel(params []Parameter) int64 {
	var n int64
	for _, p := range params {
		size := p.Tensor.MustSize()
		c := int64(1)
		for _, d := range size {
			c *= d
		}
		n += c
	}
	return n
}

// Conv2d creates Conv2D module.
func Conv2d(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// ConvParameters returns the weight and bias of c.
func ConvParameters(c *nn.Conv2D) []Parameter {
	params := []Parameter{{Name: "weight", Tensor: c.Ws}}
	if c.Bs != nil && c.Bs.MustDefined() {
		params = append(params, Parameter{Name: "bias", Tensor: c.Bs})
	}
	return params
}

// DoubleConv is two 3x3 convolutions, each followed by a ReLU.
// No normalization, no residual.
type DoubleConv struct {
	Conv1   *nn.Conv2D
	Conv2   *nn.Conv2D
	Filters int64
	Padding shape.Padding
}

// NewDoubleConv creates a DoubleConv mapping cIn channels to filters channels.
func NewDoubleConv(p *nn.Path, cIn, filters int64, padding shape.Padding) *DoubleConv {
	pad := padding.ConvPad()
	return &DoubleConv{
		Conv1:   Conv2d(p.Sub("conv1"), cIn, filters, shape.KernelSize, pad, 1),
		Conv2:   Conv2d(p.Sub("conv2"), filters, filters, shape.KernelSize, pad, 1),
		Filters: filters,
		Padding: padding,
	}
}

// Forward applies conv-relu-conv-relu. x is [B C H W].
func (d *DoubleConv) Forward(x *ts.Tensor) *ts.Tensor {
	c1 := d.Conv1.Forward(x)
	r1 := c1.MustRelu(true)
	c2 := d.Conv2.Forward(r1)
	r1.MustDrop()

	return c2.MustRelu(true)
}

// ForwardT implements ts.ModuleT for DoubleConv.
func (d *DoubleConv) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return d.Forward(x)
}

// Parameters returns conv1.{weight,bias} and conv2.{weight,bias}.
func (d *DoubleConv) Parameters() []Parameter {
	params := Prefix("conv1", ConvParameters(d.Conv1))
	return append(params, Prefix("conv2", ConvParameters(d.Conv2))...)
}
