package dataset

import (
	"context"
	"fmt"
)

// MaskCoverage is the fraction of mask values at or above threshold.
func MaskCoverage(mask []float32, threshold float32) float64 {
	if len(mask) == 0 {
		return 0
	}
	var n int
	for _, v := range mask {
		if v >= threshold {
			n++
		}
	}
	return float64(n) / float64(len(mask))
}

// Coverage returns the foreground fraction of every mask in b, in batch order.
func (b *Batch) Coverage(threshold float32) []float64 {
	size := b.Masks.MustSize()
	plane := int(size[1] * size[2] * size[3])
	vals := b.Masks.Float64Values()

	out := make([]float64, b.Size())
	mask := make([]float32, plane)
	for i := range out {
		for j, v := range vals[i*plane : (i+1)*plane] {
			mask[j] = float32(v)
		}
		out[i] = MaskCoverage(mask, threshold)
	}
	return out
}

// Coverages runs one epoch of l and returns the foreground fraction of every
// mask, indexed like the loader's dataset.
func Coverages(ctx context.Context, l *Loader, threshold float32) ([]float64, error) {
	if l.repeat {
		return nil, fmt.Errorf("coverage needs a finite loader, got a repeating one")
	}
	l.Reset()
	out := make([]float64, l.ds.Len())
	for l.HasNext() {
		b, err := l.Next(ctx)
		if err != nil {
			return nil, err
		}
		for i, c := range b.Coverage(threshold) {
			out[b.Indices[i]] = c
		}
		b.Drop()
	}
	return out, nil
}
