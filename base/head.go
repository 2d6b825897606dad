package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// SegmentationHead projects features to per-class scores in [0,1]
// with a 1x1 convolution and a sigmoid.
type SegmentationHead struct {
	Conv *nn.Conv2D
}

// NewSegmentationHead creates new SegmentationHead.
func NewSegmentationHead(p *nn.Path, cIn, cOut int64) *SegmentationHead {
	return &SegmentationHead{Conv: Conv2d(p, cIn, cOut, 1, 0, 1)}
}

// Forward returns sigmoid(conv1x1(x)).
func (h *SegmentationHead) Forward(x *ts.Tensor) *ts.Tensor {
	logit := h.Conv.Forward(x)
	return logit.MustSigmoid(true)
}

// Parameters returns the projection weight and bias.
func (h *SegmentationHead) Parameters() []Parameter {
	return ConvParameters(h.Conv)
}
