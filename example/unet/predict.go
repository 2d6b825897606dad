package main

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
	"golang.org/x/image/draw"

	"github.com/sugarme/unet2d/dataset"
	"github.com/sugarme/unet2d/metric"
	"github.com/sugarme/unet2d/shape"
)

type predictFlags struct {
	weights   string
	out       string
	overlay   string
	mask      string
	channel   int64
	threshold float64
	cuda      bool
}

func (a *app) predictCmd() *cobra.Command {
	var f predictFlags
	cmd := &cobra.Command{
		Use:   "predict IMAGE",
		Short: "Segment an image and write the probability mask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.predict(cmd.OutOrStdout(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.weights, "weights", "", "trained weights to load (.ot)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "mask.png", "output mask file")
	cmd.Flags().StringVar(&f.overlay, "overlay", "", "write the mask blended over the input to this file")
	cmd.Flags().StringVar(&f.mask, "mask", "", "ground-truth mask to score the prediction against")
	cmd.Flags().Int64Var(&f.channel, "channel", 0, "output channel to write")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "binarize the mask at this probability (0 keeps probabilities)")
	cmd.Flags().BoolVar(&f.cuda, "cuda", false, "run on CUDA if available")
	return cmd
}

func (a *app) predict(w io.Writer, path string, f predictFlags) error {
	if a.cfg.Model.InChannels != 3 {
		return fmt.Errorf("predict reads RGB images, model expects %d input channels", a.cfg.Model.InChannels)
	}
	if f.channel < 0 || f.channel >= a.cfg.Model.OutChannels {
		return fmt.Errorf("channel %d out of range [0, %d)", f.channel, a.cfg.Model.OutChannels)
	}

	device := gotch.CPU
	if f.cuda {
		device = gotch.NewCuda().CudaIfAvailable()
	}
	net, vs, err := a.newNet(device)
	if err != nil {
		return err
	}
	if f.weights != "" {
		if err := vs.Load(f.weights); err != nil {
			return fmt.Errorf("load weights: %w", err)
		}
		a.logger.Info("weights loaded", "path", f.weights)
	} else {
		a.logger.Warn("no weights given, predicting with random initialization")
	}

	opts := a.cfg.Options()
	plan, err := net.Plan(int64(opts.Height), int64(opts.Width))
	if err != nil {
		return err
	}
	win := window(plan)

	vals, err := dataset.ReadImage(path, opts)
	if err != nil {
		return err
	}
	x := ts.MustOfSlice(vals).
		MustView([]int64{1, 3, int64(opts.Height), int64(opts.Width)}, true).
		MustTo(device, true)
	defer x.MustDrop()

	var (
		out    *ts.Tensor
		fwdErr error
	)
	ts.NoGrad(func() {
		out, fwdErr = net.Forward(x, false)
	})
	if fwdErr != nil {
		return fwdErr
	}
	probs := out.MustNarrow(1, f.channel, 1, true).MustTo(gotch.CPU, true)
	defer probs.MustDrop()

	if f.mask != "" {
		dice, iou, err := score(probs, f.mask, opts, win)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "dice: %.4f iou: %.4f\n", dice, iou)
	}

	mask := toGray(probs.Float64Values(), win.Dx(), win.Dy(), f.threshold)
	if err := imaging.Save(mask, f.out); err != nil {
		return err
	}
	a.logger.Info("mask written", "path", f.out, "window", win)

	if f.overlay == "" {
		return nil
	}
	src, err := dataset.Decode(path)
	if err != nil {
		return err
	}
	full := canvas(mask, image.Pt(opts.Width, opts.Height), win)
	if err := imaging.Save(blend(src, full), f.overlay); err != nil {
		return err
	}
	a.logger.Info("overlay written", "path", f.overlay)
	return nil
}

// window is the region of the network input covered by its output. Under
// valid padding it is a centered interior window.
func window(plan *shape.Plan) image.Rectangle {
	top, left := plan.Offset()
	return image.Rect(int(left), int(top), int(left+plan.Output.W), int(top+plan.Output.H))
}

// score compares probs [1 1 h w] against the ground-truth mask read at the
// network input size and cut to win.
func score(probs *ts.Tensor, path string, opts dataset.Options, win image.Rectangle) (dice, iou float64, err error) {
	vals, err := dataset.ReadMask(path, opts)
	if err != nil {
		return 0, 0, err
	}
	cut := make([]float32, 0, win.Dx()*win.Dy())
	for y := win.Min.Y; y < win.Max.Y; y++ {
		cut = append(cut, vals[y*opts.Width+win.Min.X:y*opts.Width+win.Max.X]...)
	}
	target := ts.MustOfSlice(cut).MustView([]int64{1, 1, int64(win.Dy()), int64(win.Dx())}, true)
	defer target.MustDrop()

	return metric.DiceCoeff(probs, target), metric.IoU(probs, target), nil
}

// canvas places mask at win on a blank image of the given size.
func canvas(mask *image.Gray, size image.Point, win image.Rectangle) *image.Gray {
	full := image.NewGray(image.Rectangle{Max: size})
	draw.Draw(full, win, mask, mask.Bounds().Min, draw.Src)
	return full
}

// toGray maps probabilities to an 8-bit mask. A positive threshold
// binarizes it.
func toGray(values []float64, w, h int, threshold float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range values {
		if threshold > 0 {
			if v >= threshold {
				v = 1
			} else {
				v = 0
			}
		}
		img.Pix[i] = uint8(v*255 + 0.5)
	}
	return img
}

// blend paints mask in red over src at half opacity, scaling the mask to
// the size of src.
func blend(src image.Image, mask *image.Gray) *image.RGBA {
	b := src.Bounds()
	scaled := image.NewGray(b)
	draw.ApproxBiLinear.Scale(scaled, b, mask, mask.Bounds(), draw.Src, nil)

	alpha := image.NewAlpha(b)
	for i, v := range scaled.Pix {
		alpha.Pix[i] = v / 2
	}

	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	draw.DrawMask(dst, b, image.NewUniform(color.RGBA{R: 255, A: 255}), image.Point{}, alpha, b.Min, draw.Over)
	return dst
}
