package unet

import (
	"fmt"
	"log/slog"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/unet2d/base"
	"github.com/sugarme/unet2d/encoder"
	"github.com/sugarme/unet2d/shape"
)

// UNet is a UNET model struct
// Ref: https://arxiv.org/abs/1505.04597
type UNet struct {
	cfg        Config
	encoder    *encoder.ContractingPath
	bottleneck *base.DoubleConv
	decoder    [shape.Depth]*ExpansionModule
	head       *base.SegmentationHead

	inputH, inputW int64
	plan           *shape.Plan
	logger         *slog.Logger
}

// New creates a UNet under p. Invalid options fail with shape.ErrInvalidConfig
// before any parameter is allocated; with WithInputSize an input too small
// for the contraction depth fails here too.
func New(p *nn.Path, cfg Config, opts ...Option) (*UNet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &UNet{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}

	if n.inputH != 0 || n.inputW != 0 {
		plan, err := n.Plan(n.inputH, n.inputW)
		if err != nil {
			return nil, err
		}
		n.plan = plan
		if plan.Truncated() {
			n.logger.Warn("odd extent at pooling, last row/column dropped", "input", plan.Input, "output", plan.Output)
		}
	}

	filters := shape.Filters(cfg.InitFilters)
	n.encoder = encoder.NewContractingPath(p, cfg.InChannels, cfg.InitFilters, cfg.Padding)
	n.bottleneck = base.NewDoubleConv(p.Sub("bottleneck"), filters[shape.Depth-1], filters[shape.Depth], cfg.Padding)

	cIn := filters[shape.Depth]
	for j := range n.decoder {
		name := fmt.Sprintf("up%d", j+1)
		f := filters[shape.Depth-1-j]
		// skip features come from the mirrored contraction stage, which has f channels
		n.decoder[j] = NewExpansionModule(p.Sub(name), name, cIn, f, f, cfg.Padding)
		cIn = f
	}
	n.head = base.NewSegmentationHead(p.Sub("out"), cIn, cfg.OutChannels)

	n.logger.Debug("unet created",
		"in_channels", cfg.InChannels,
		"out_channels", cfg.OutChannels,
		"init_filters", cfg.InitFilters,
		"padding", cfg.Padding,
		"params", n.NumParams())

	return n, nil
}

// Config returns the construction options.
func (n *UNet) Config() Config { return n.cfg }

// Plan infers every intermediate shape for a single height x width input.
func (n *UNet) Plan(height, width int64) (*shape.Plan, error) {
	return shape.Infer(n.cfg.Arch(), shape.Dims{N: 1, H: height, W: width, C: n.cfg.InChannels})
}

// Forward runs x [B C H W] through the network and returns per-pixel scores
// [B out_channels H' W'] in [0,1]. H' = H under same padding and
// shape.ValidOutputSize(H) under valid padding. Shapes are checked before any
// computation; the input x is not dropped.
func (n *UNet) Forward(x *ts.Tensor, train bool) (*ts.Tensor, error) {
	dims, err := shape.FromNCHW(x.MustSize())
	if err != nil {
		return nil, err
	}
	if n.plan != nil && !dims.SameSpatial(n.plan.Input) {
		return nil, shape.Mismatchf("input", "network built for %dx%d input, got %dx%d", n.plan.Input.H, n.plan.Input.W, dims.H, dims.W)
	}
	plan, err := shape.Infer(n.cfg.Arch(), dims)
	if err != nil {
		return nil, err
	}

	deep, skips := n.encoder.ForwardSkips(x, train)
	out := n.bottleneck.Forward(deep)
	deep.MustDrop()

	for _, stage := range n.decoder {
		skip, err := skips.Pop()
		if err != nil {
			out.MustDrop()
			return nil, err
		}
		next, err := stage.Forward(out, skip)
		out.MustDrop()
		if err != nil {
			skips.Drop()
			return nil, err
		}
		out = next
	}
	if skips.Len() != 0 {
		left := skips.Len()
		skips.Drop()
		out.MustDrop()
		return nil, fmt.Errorf("%d skip tensors left unconsumed", left)
	}

	masks := n.head.Forward(out)
	out.MustDrop()

	n.logger.Debug("unet forward", "input", plan.Input, "output", plan.Output)

	return masks, nil
}

// ForwardT implements ts.ModuleT for UNet struct. It panics where Forward
// returns an error.
func (n *UNet) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	out, err := n.Forward(x, train)
	if err != nil {
		panic(err)
	}
	return out
}

// ForwardNHWC runs a channels-last [B H W C] input and returns a
// channels-last [B H' W' out_channels] result.
func (n *UNet) ForwardNHWC(x *ts.Tensor, train bool) (*ts.Tensor, error) {
	if _, err := shape.FromNHWC(x.MustSize()); err != nil {
		return nil, err
	}
	nchw := x.MustPermute([]int64{0, 3, 1, 2}, false)
	out, err := n.Forward(nchw, train)
	nchw.MustDrop()
	if err != nil {
		return nil, err
	}
	return out.MustPermute([]int64{0, 2, 3, 1}, true), nil
}

// Parameters aggregates the parameters of every stage, named by stage:
// down1..down4, bottleneck, up1..up4 and out.
func (n *UNet) Parameters() []base.Parameter {
	params := n.encoder.Parameters()
	params = append(params, base.Prefix("bottleneck", n.bottleneck.Parameters())...)
	for j, stage := range n.decoder {
		params = append(params, base.Prefix(fmt.Sprintf("up%d", j+1), stage.Parameters())...)
	}
	return append(params, base.Prefix("out", n.head.Parameters())...)
}

// NumParams is the number of trainable scalars.
func (n *UNet) NumParams() int64 {
	return base.Numel(n.Parameters())
}
