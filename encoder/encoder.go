package encoder

import (
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/unet2d/base"
)

// Encoder is the contracting half of a segmentation model. It returns the
// deepest feature map and the retained skip features, deepest on top.
type Encoder interface {
	ForwardSkips(x *ts.Tensor, train bool) (*ts.Tensor, *SkipStack)
	Parameters() []base.Parameter
}
