package unet

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/unet2d/base"
	"github.com/sugarme/unet2d/shape"
)

// ExpansionModule upsamples, reconciles the skip tensor against the
// upsampled size, concatenates on channels and applies a DoubleConv.
type ExpansionModule struct {
	Name    string
	Up      *base.UpConv
	Conv    *base.DoubleConv
	Filters int64
	Padding shape.Padding
}

// NewExpansionModule creates an ExpansionModule. cIn is the channel count of
// the deeper tensor and skip the channel count of the encoder features.
func NewExpansionModule(p *nn.Path, name string, cIn, skip, filters int64, padding shape.Padding) *ExpansionModule {
	return &ExpansionModule{
		Name:    name,
		Up:      base.NewUpConv(p.Sub("up"), cIn, filters),
		Conv:    base.NewDoubleConv(p, filters+skip, filters, padding),
		Filters: filters,
		Padding: padding,
	}
}

// Forward expands x using the encoder features skip. It takes ownership of
// skip and releases it on return; x is left to the caller.
//
// Under valid padding skip is center-cropped to the upsampled size. Any
// remaining spatial disagreement is an ErrShapeMismatch.
func (m *ExpansionModule) Forward(x, skip *ts.Tensor) (*ts.Tensor, error) {
	defer skip.MustDrop()

	up := m.Up.Forward(x) // [B F 2H 2W]
	upDims, err := shape.FromNCHW(up.MustSize())
	if err != nil {
		up.MustDrop()
		return nil, err
	}
	skipDims, err := shape.FromNCHW(skip.MustSize())
	if err != nil {
		up.MustDrop()
		return nil, err
	}

	cropped, top, left, err := shape.Reconcile(m.Name, upDims, skipDims, m.Padding)
	if err != nil {
		up.MustDrop()
		return nil, err
	}

	enc := skip
	if !cropped.SameSpatial(skipDims) {
		rows := skip.MustNarrow(2, top, cropped.H, false)
		enc = rows.MustNarrow(3, left, cropped.W, true)
	}

	cat := ts.MustCat([]ts.Tensor{*up, *enc}, 1) // [B F+Cskip 2H 2W]
	up.MustDrop()
	if enc != skip {
		enc.MustDrop()
	}

	out := m.Conv.Forward(cat)
	cat.MustDrop()

	return out, nil
}

// Parameters returns up.{weight,bias} and the DoubleConv parameters.
func (m *ExpansionModule) Parameters() []base.Parameter {
	params := base.Prefix("up", m.Up.Parameters())
	return append(params, m.Conv.Parameters()...)
}
