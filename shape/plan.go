package shape

import (
	"fmt"
	"math"
)

const (
	// Depth is the number of contraction (and expansion) stages.
	Depth = 4
	// KernelSize is the DoubleConv kernel extent.
	KernelSize = 3
	// PoolSize is the max-pool kernel and stride.
	PoolSize = 2
	// UpStride is the transposed convolution kernel and stride.
	UpStride = 2

	// MaxInitFilters is the largest base width whose bottleneck width
	// base<<Depth fits in an int64.
	MaxInitFilters = math.MaxInt64 >> Depth
)

// Arch is the architectural configuration a plan is inferred for.
type Arch struct {
	InChannels  int64
	OutChannels int64
	InitFilters int64
	Padding     Padding
}

// Validate checks the construction-time options.
func (a Arch) Validate() error {
	switch {
	case !a.Padding.IsValid():
		return Configf("padding must be same or valid, got %v", a.Padding)
	case a.InitFilters <= 0:
		return Configf("init filters must be positive, got %d", a.InitFilters)
	case a.InitFilters > MaxInitFilters:
		return Configf("init filters %d overflow the filter schedule, max %d", a.InitFilters, int64(MaxInitFilters))
	case a.OutChannels <= 0:
		return Configf("out channels must be positive, got %d", a.OutChannels)
	case a.InChannels <= 0:
		return Configf("in channels must be positive, got %d", a.InChannels)
	}
	return nil
}

// Filters returns the channel widths of the four contraction stages and the
// bottleneck: base, 2*base, 4*base, 8*base, 16*base. Expansion stage j uses
// Filters(base)[Depth-1-j].
func Filters(base int64) [Depth + 1]int64 {
	var f [Depth + 1]int64
	for i := range f {
		f[i] = base << uint(i)
	}
	return f
}

// ConvExtent is the output extent of one 3x3 stride-1 convolution.
func ConvExtent(h int64, p Padding) int64 {
	return h + 2*p.ConvPad() - KernelSize + 1
}

// DoubleConvExtent is the output extent of two 3x3 convolutions.
func DoubleConvExtent(h int64, p Padding) int64 {
	return ConvExtent(ConvExtent(h, p), p)
}

// PoolExtent is the output extent of 2x2 stride-2 max-pooling (floor).
func PoolExtent(h int64) int64 {
	return h / PoolSize
}

// UpExtent is the output extent of a 2x2 stride-2 transposed convolution.
func UpExtent(h int64) int64 {
	return h * UpStride
}

// CenterCrop returns the leading offset that centers a window of extent to
// inside an extent from. When the difference is odd the extra pixel is
// dropped from the trailing side.
func CenterCrop(from, to int64) (int64, error) {
	if to > from {
		return 0, fmt.Errorf("crop window %d larger than source %d", to, from)
	}
	return (from - to) / 2, nil
}

// Stage is the inferred shape bookkeeping of one network stage.
type Stage struct {
	Name    string
	Filters int64
	In      Dims
	// Skip is the retained pre-pool tensor for contraction stages and the
	// (cropped) skip tensor concatenated by expansion stages.
	Skip Dims
	Out  Dims
	// CropTop and CropLeft are the center-crop offsets applied to the skip
	// tensor of an expansion stage.
	CropTop, CropLeft int64
	// Truncated is set when a contraction stage pools an odd extent and
	// drops its last row or column.
	Truncated bool
}

// Plan is the result of static shape propagation through the whole network.
type Plan struct {
	Arch       Arch
	Input      Dims
	Contract   [Depth]Stage
	Bottleneck Stage
	Expand     [Depth]Stage
	Output     Dims
}

// Stages returns every stage in execution order, output projection excluded.
func (p *Plan) Stages() []Stage {
	stages := make([]Stage, 0, 2*Depth+1)
	stages = append(stages, p.Contract[:]...)
	stages = append(stages, p.Bottleneck)
	stages = append(stages, p.Expand[:]...)
	return stages
}

// Offset is the position in the input of output pixel (0, 0). Under same
// padding it is zero; under valid padding the output covers the input window
// starting at (top, left) with the output's extent.
func (p *Plan) Offset() (top, left int64) {
	first, last := p.Contract[0], p.Expand[Depth-1]
	top = (first.In.H-first.Skip.H)/2 + last.CropTop + (last.Skip.H-last.Out.H)/2
	left = (first.In.W-first.Skip.W)/2 + last.CropLeft + (last.Skip.W-last.Out.W)/2
	return top, left
}

// Truncated reports whether any contraction stage pooled an odd extent.
func (p *Plan) Truncated() bool {
	for _, s := range p.Contract {
		if s.Truncated {
			return true
		}
	}
	return false
}

// Infer propagates input through the network described by arch and returns
// every intermediate shape. It fails with ErrInvalidConfig,
// ErrShapeMismatch or ErrDegenerateInput before any tensor is touched.
func Infer(arch Arch, input Dims) (*Plan, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}
	if input.N <= 0 || input.H <= 0 || input.W <= 0 {
		return nil, Degeneratef("input", "non-positive dimension in %v", input)
	}
	if input.C != arch.InChannels {
		return nil, Mismatchf("input", "network expects %d input channels, got %d", arch.InChannels, input.C)
	}

	plan := &Plan{Arch: arch, Input: input}
	filters := Filters(arch.InitFilters)
	pad := arch.Padding
	x := input

	for i := 0; i < Depth; i++ {
		name := fmt.Sprintf("down%d", i+1)
		conv, err := doubleConv(name, x, filters[i], pad)
		if err != nil {
			return nil, err
		}
		pooled := Dims{N: conv.N, H: PoolExtent(conv.H), W: PoolExtent(conv.W), C: conv.C}
		if pooled.H <= 0 || pooled.W <= 0 {
			return nil, Degeneratef(name, "pooling %dx%d features leaves %dx%d", conv.H, conv.W, pooled.H, pooled.W)
		}
		plan.Contract[i] = Stage{
			Name:      name,
			Filters:   filters[i],
			In:        x,
			Skip:      conv,
			Out:       pooled,
			Truncated: conv.H%PoolSize != 0 || conv.W%PoolSize != 0,
		}
		x = pooled
	}

	bottom, err := doubleConv("bottleneck", x, filters[Depth], pad)
	if err != nil {
		return nil, err
	}
	plan.Bottleneck = Stage{Name: "bottleneck", Filters: filters[Depth], In: x, Out: bottom}
	x = bottom

	for j := 0; j < Depth; j++ {
		name := fmt.Sprintf("up%d", j+1)
		f := filters[Depth-1-j]
		skip := plan.Contract[Depth-1-j].Skip
		up := Dims{N: x.N, H: UpExtent(x.H), W: UpExtent(x.W), C: f}

		stage := Stage{Name: name, Filters: f, In: x}
		cropped, top, left, err := Reconcile(name, up, skip, pad)
		if err != nil {
			return nil, err
		}
		stage.Skip, stage.CropTop, stage.CropLeft = cropped, top, left

		cat := Dims{N: up.N, H: up.H, W: up.W, C: cropped.C + up.C}
		out, err := doubleConv(name, cat, f, pad)
		if err != nil {
			return nil, err
		}
		stage.Out = out
		plan.Expand[j] = stage
		x = out
	}

	plan.Output = Dims{N: x.N, H: x.H, W: x.W, C: arch.OutChannels}
	return plan, nil
}

// Reconcile returns the skip dims after spatial reconciliation against the
// upsampled tensor up, along with the crop offsets. Under Valid padding the
// skip tensor is center-cropped; under Same it must already match.
func Reconcile(stage string, up, skip Dims, pad Padding) (Dims, int64, int64, error) {
	if up.N != skip.N {
		return Dims{}, 0, 0, Mismatchf(stage, "batch %d of upsampled tensor vs %d of skip tensor", up.N, skip.N)
	}
	if pad == Same {
		if !up.SameSpatial(skip) {
			return Dims{}, 0, 0, Mismatchf(stage, "upsampled %dx%d vs skip %dx%d (same padding needs even extents at every pooling)", up.H, up.W, skip.H, skip.W)
		}
		return skip, 0, 0, nil
	}

	top, err := CenterCrop(skip.H, up.H)
	if err != nil {
		return Dims{}, 0, 0, Mismatchf(stage, "height: %v", err)
	}
	left, err := CenterCrop(skip.W, up.W)
	if err != nil {
		return Dims{}, 0, 0, Mismatchf(stage, "width: %v", err)
	}
	return Dims{N: skip.N, H: up.H, W: up.W, C: skip.C}, top, left, nil
}

func doubleConv(stage string, in Dims, filters int64, pad Padding) (Dims, error) {
	out := Dims{N: in.N, H: DoubleConvExtent(in.H, pad), W: DoubleConvExtent(in.W, pad), C: filters}
	if out.H <= 0 || out.W <= 0 {
		return Dims{}, Degeneratef(stage, "%dx%d input leaves %dx%d after two %dx%d convolutions", in.H, in.W, out.H, out.W, KernelSize, KernelSize)
	}
	return out, nil
}

// ValidOutputSize is the closed-form output extent of a valid-padded network
// for input extent h: four rounds of (h-4)/2 down to the bottleneck b = a4-4,
// then four rounds of 2x-4 back up, i.e. 16b-60. Inputs of the form 16b+124
// pool without truncation and shrink by exactly 184 pixels. A non-positive
// result means the input is degenerate.
func ValidOutputSize(h int64) int64 {
	a := h
	for i := 0; i < Depth; i++ {
		a = PoolExtent(a - 4)
	}
	b := a - 4
	return 16*b - 60
}
