// Package metric scores predicted masks against ground truth.
package metric

import (
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

const (
	// Threshold separates foreground from background probabilities.
	Threshold = 0.5

	eps = 0.001
)

// binarize flattens x and maps values above Threshold to 1, others to 0.
func binarize(x *ts.Tensor) *ts.Tensor {
	flat := x.MustReshape([]int64{-1}, false)
	return flat.MustGt(ts.FloatScalar(Threshold), true).MustTotype(gotch.Float, true)
}

func sum(x *ts.Tensor) float64 {
	s := x.MustSum(gotch.Double, false)
	v := s.Float64Values()[0]
	s.MustDrop()
	return v
}

// counts returns the overlap of pred and target and their foreground sizes.
func counts(pred, target *ts.Tensor) (overlap, p, t float64) {
	pb := binarize(pred)
	tb := binarize(target)
	inter := pb.MustMul(tb, false)

	overlap, p, t = sum(inter), sum(pb), sum(tb)

	inter.MustDrop()
	pb.MustDrop()
	tb.MustDrop()
	return overlap, p, t
}

// DiceCoeff measures overlap between two masks: 2|P∩T| / (|P| + |T|).
// Two empty masks score 0.
func DiceCoeff(pred, target *ts.Tensor) float64 {
	overlap, p, t := counts(pred, target)
	return (2 * overlap) / (p + t + eps)
}

// IoU is the Jaccard index |P∩T| / |P∪T|.
func IoU(pred, target *ts.Tensor) float64 {
	overlap, p, t := counts(pred, target)
	return overlap / (p + t - overlap + eps)
}
