package encoder

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/unet2d/base"
	"github.com/sugarme/unet2d/shape"
)

// ContractionModule is a DoubleConv followed by 2x2 stride-2 max-pooling.
type ContractionModule struct {
	Conv    *base.DoubleConv
	Filters int64
}

// NewContractionModule creates a ContractionModule producing filters channels.
func NewContractionModule(p *nn.Path, cIn, filters int64, padding shape.Padding) *ContractionModule {
	return &ContractionModule{
		Conv:    base.NewDoubleConv(p, cIn, filters, padding),
		Filters: filters,
	}
}

// Forward returns the pooled output and the pre-pool features kept for the
// matching expansion stage. Odd extents lose their last row/column in pooling.
func (m *ContractionModule) Forward(x *ts.Tensor) (pooled, skip *ts.Tensor) {
	skip = m.Conv.Forward(x)
	k := []int64{shape.PoolSize, shape.PoolSize}
	// ksize = 2; stride = 2; padding = 0; dilation = 1; ceil = false
	pooled = skip.MustMaxPool2d(k, k, []int64{0, 0}, []int64{1, 1}, false, false)

	return pooled, skip
}

// Parameters returns the DoubleConv parameters.
func (m *ContractionModule) Parameters() []base.Parameter {
	return m.Conv.Parameters()
}

// ContractingPath chains shape.Depth contraction modules with the filter
// schedule base, 2*base, 4*base, 8*base.
type ContractingPath struct {
	Stages [shape.Depth]*ContractionModule
}

// NewContractingPath creates the contracting path under p as down1..down4.
func NewContractingPath(p *nn.Path, cIn, initFilters int64, padding shape.Padding) *ContractingPath {
	var path ContractingPath
	filters := shape.Filters(initFilters)
	for i := range path.Stages {
		path.Stages[i] = NewContractionModule(p.Sub(stageName(i)), cIn, filters[i], padding)
		cIn = filters[i]
	}
	return &path
}

// ForwardSkips implements Encoder. The input x is not dropped.
func (c *ContractingPath) ForwardSkips(x *ts.Tensor, train bool) (*ts.Tensor, *SkipStack) {
	skips := NewSkipStack(shape.Depth)
	out := x
	for i, stage := range c.Stages {
		pooled, skip := stage.Forward(out)
		if i > 0 {
			out.MustDrop()
		}
		skips.Push(skip)
		out = pooled
	}
	return out, skips
}

// Parameters implements Encoder.
func (c *ContractingPath) Parameters() []base.Parameter {
	var params []base.Parameter
	for i, stage := range c.Stages {
		params = append(params, base.Prefix(stageName(i), stage.Parameters())...)
	}
	return params
}

func stageName(i int) string {
	return fmt.Sprintf("down%d", i+1)
}
