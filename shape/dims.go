package shape

import "fmt"

// Dims is the shape of a feature tensor: batch, height, width, channels.
// It is independent of memory layout; libtorch tensors are NCHW while the
// public image contract is NHWC.
type Dims struct {
	N, H, W, C int64
}

// FromNCHW reads a [batch, channels, height, width] size.
func FromNCHW(size []int64) (Dims, error) {
	if len(size) != 4 {
		return Dims{}, Mismatchf("input", "expected a 4D [N C H W] tensor, got %dD %v", len(size), size)
	}
	return Dims{N: size[0], C: size[1], H: size[2], W: size[3]}, nil
}

// FromNHWC reads a [batch, height, width, channels] size.
func FromNHWC(size []int64) (Dims, error) {
	if len(size) != 4 {
		return Dims{}, Mismatchf("input", "expected a 4D [N H W C] tensor, got %dD %v", len(size), size)
	}
	return Dims{N: size[0], H: size[1], W: size[2], C: size[3]}, nil
}

// NCHW returns the libtorch size of d.
func (d Dims) NCHW() []int64 { return []int64{d.N, d.C, d.H, d.W} }

// NHWC returns the channels-last size of d.
func (d Dims) NHWC() []int64 { return []int64{d.N, d.H, d.W, d.C} }

// SameSpatial reports whether d and o have equal height and width.
func (d Dims) SameSpatial(o Dims) bool {
	return d.H == o.H && d.W == o.W
}

func (d Dims) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", d.N, d.H, d.W, d.C)
}
