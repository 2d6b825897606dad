package dataset

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Normalization maps an 8-bit channel value v to (v/Scale - Mean[c]) / Std[c].
type Normalization struct {
	Scale float32    `yaml:"scale"`
	Mean  [3]float32 `yaml:"mean"`
	Std   [3]float32 `yaml:"std"`
}

var (
	// UnitNormalization scales 8-bit values into [0,1].
	UnitNormalization = Normalization{Scale: 255, Mean: [3]float32{0, 0, 0}, Std: [3]float32{1, 1, 1}}
	// ImageNetNormalization standardizes with the ImageNet RGB statistics.
	ImageNetNormalization = Normalization{
		Scale: 255,
		Mean:  [3]float32{0.485, 0.456, 0.406},
		Std:   [3]float32{0.229, 0.224, 0.225},
	}
)

// Validate rejects a zero scale or a zero standard deviation.
func (n Normalization) Validate() error {
	if n.Scale == 0 {
		return fmt.Errorf("normalization scale must be non-zero")
	}
	for c, s := range n.Std {
		if s == 0 {
			return fmt.Errorf("normalization std of channel %d must be non-zero", c)
		}
	}
	return nil
}

// Options control how samples are decoded.
type Options struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// Image normalizes RGB images.
	Image Normalization `yaml:"image"`
	// MaskScale divides 8-bit mask values.
	MaskScale float32 `yaml:"mask_scale"`
	// Interpolation resizes both images and masks.
	Interpolation resize.InterpolationFunction `yaml:"-"`
}

// DefaultOptions resizes to 256x256 bilinearly and maps images and masks
// into [0,1].
func DefaultOptions() Options {
	return Options{
		Width:         256,
		Height:        256,
		Image:         UnitNormalization,
		MaskScale:     255,
		Interpolation: resize.Bilinear,
	}
}

// Validate checks sizes and normalization constants.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("output size must be positive, got %dx%d", o.Width, o.Height)
	}
	if o.MaskScale == 0 {
		return fmt.Errorf("mask scale must be non-zero")
	}
	return o.Image.Validate()
}

// Decode reads an image file. TIFF files go through chai2010/tiff, which
// handles more TIFF variants; everything else through imaging.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		img, err := tiff.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %v: %w", path, err)
		}
		return img, nil
	default:
		img, err := imaging.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %v: %w", path, err)
		}
		return img, nil
	}
}

// ReadImage decodes, resizes and normalizes an RGB image into a CHW slice of
// length 3*Height*Width.
func ReadImage(path string, opts Options) ([]float32, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return ImageValues(img, opts), nil
}

// ImageValues resizes and normalizes img into a CHW slice.
func ImageValues(img image.Image, opts Options) []float32 {
	src := imaging.Clone(resize.Resize(uint(opts.Width), uint(opts.Height), img, opts.Interpolation))
	plane := opts.Width * opts.Height
	out := make([]float32, 3*plane)
	n := opts.Image
	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			i := y*src.Stride + x*4
			for c := 0; c < 3; c++ {
				v := float32(src.Pix[i+c]) / n.Scale
				out[c*plane+y*opts.Width+x] = (v - n.Mean[c]) / n.Std[c]
			}
		}
	}
	return out
}

// ReadMask decodes a mask as grayscale, resizes it and scales it into a
// single-channel slice of length Height*Width.
func ReadMask(path string, opts Options) ([]float32, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return MaskValues(img, opts), nil
}

// MaskValues converts img to grayscale, resizes and scales it.
func MaskValues(img image.Image, opts Options) []float32 {
	gray := imaging.Grayscale(img)
	src := imaging.Clone(resize.Resize(uint(opts.Width), uint(opts.Height), gray, opts.Interpolation))
	out := make([]float32, opts.Width*opts.Height)
	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			out[y*opts.Width+x] = float32(src.Pix[y*src.Stride+x*4]) / opts.MaskScale
		}
	}
	return out
}
