package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/unet2d/dataset"
	"github.com/sugarme/unet2d/shape"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newCLI()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  out_channels: 1
  init_filters: 16
  padding: valid
data:
  width: 188
  height: 188
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.Model.OutChannels)
	assert.Equal(t, int64(16), cfg.Model.InitFilters)
	assert.Equal(t, shape.Valid, cfg.Model.Padding)
	assert.Equal(t, int64(3), cfg.Model.InChannels)
	assert.Equal(t, 188, cfg.Options().Width)
	assert.Equal(t, float32(255), cfg.Options().MaskScale)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  init_filters: 0\n"), 0o644))

	_, err := LoadConfig(path)
	assert.True(t, errors.Is(err, shape.ErrInvalidConfig))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestShapeCommand(t *testing.T) {
	out, err := run(t, "shape", "--padding", "valid", "--size", "188", "--filters", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "bottleneck")
	assert.Contains(t, out, "(1, 4, 4, 3)")
}

func TestShapeCommandDegenerate(t *testing.T) {
	_, err := run(t, "shape", "--size", "8")
	assert.True(t, errors.Is(err, shape.ErrDegenerateInput))
}

func TestShapeCommandFlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  padding: valid\n"), 0o644))

	out, err := run(t, "shape", "--config", path, "--padding", "same", "--size", "32", "--filters", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "(1, 32, 32, 3)")
}

func TestSplitCommand(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"images", "masks"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
		for i := 0; i < 4; i++ {
			f, err := os.Create(filepath.Join(dir, sub, fmt.Sprintf("%d.png", i)))
			require.NoError(t, err)
			require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))))
			require.NoError(t, f.Close())
		}
	}
	manifest := filepath.Join(t.TempDir(), "split.csv")

	_, err := run(t, "split", dir, "--out", manifest)
	require.NoError(t, err)

	b, err := os.ReadFile(manifest)
	require.NoError(t, err)
	assert.Contains(t, string(b), "split,image,mask")
	assert.Equal(t, 5, bytes.Count(b, []byte("\n")))
}

func TestBlend(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}
	mask := toGray([]float64{1, 0.2, 0.7, 0}, 2, 2, 0.5)
	assert.Equal(t, []uint8{255, 0, 255, 0}, mask.Pix)

	dst := blend(src, mask)
	assert.Equal(t, src.Bounds(), dst.Bounds())
	r, _, _, _ := dst.At(0, 0).RGBA()
	assert.Greater(t, r, uint32(0))
	assert.Equal(t, color.RGBA{A: 255}, color.RGBAModel.Convert(dst.At(3, 3)))
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

// squareMask is white inside r and black elsewhere.
func squareMask(size int, r image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func TestSummaryCommand(t *testing.T) {
	out, err := run(t, "summary", "--filters", "2", "--size", "32")
	require.NoError(t, err)
	assert.Contains(t, out, "down1.conv1.weight")
	assert.Contains(t, out, "up4.up.weight")
	assert.Contains(t, out, "TOTAL")
}

func TestPredictCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "img.png")
	writePNG(t, src, image.NewRGBA(image.Rect(0, 0, 40, 30)))
	maskPath := filepath.Join(dir, "mask.png")
	overlay := filepath.Join(dir, "overlay.png")

	_, err := run(t, "predict", src, "--filters", "2", "--size", "32", "--out", maskPath, "--overlay", overlay)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 32, 32), readPNG(t, maskPath).Bounds())
	assert.Equal(t, image.Rect(0, 0, 40, 30), readPNG(t, overlay).Bounds())
}

func TestPredictCommandValid(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "img.png")
	writePNG(t, src, image.NewRGBA(image.Rect(0, 0, 188, 188)))
	truth := filepath.Join(dir, "truth.png")
	writePNG(t, truth, squareMask(188, image.Rect(92, 92, 96, 96)))
	maskPath := filepath.Join(dir, "mask.png")

	out, err := run(t, "predict", src, "--padding", "valid", "--filters", "2", "--size", "188",
		"--out", maskPath, "--mask", truth, "--overlay", filepath.Join(dir, "overlay.png"))
	require.NoError(t, err)
	assert.Contains(t, out, "dice:")
	assert.Equal(t, image.Rect(0, 0, 4, 4), readPNG(t, maskPath).Bounds())
}

func TestWindow(t *testing.T) {
	a := shape.Arch{InChannels: 3, OutChannels: 1, InitFilters: 2, Padding: shape.Valid}
	plan, err := shape.Infer(a, shape.Dims{N: 1, H: 188, W: 188, C: 3})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(92, 92, 96, 96), window(plan))

	a.Padding = shape.Same
	plan, err = shape.Infer(a, shape.Dims{N: 1, H: 32, W: 48, C: 3})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 48, 32), window(plan))
}

func TestScoreUsesWindow(t *testing.T) {
	truth := filepath.Join(t.TempDir(), "truth.png")
	writePNG(t, truth, squareMask(188, image.Rect(92, 92, 96, 96)))

	ones := make([]float32, 16)
	for i := range ones {
		ones[i] = 1
	}
	probs := ts.MustOfSlice(ones).MustView([]int64{1, 1, 4, 4}, true)
	defer probs.MustDrop()

	opts := dataset.DefaultOptions()
	opts.Width, opts.Height = 188, 188

	dice, iou, err := score(probs, truth, opts, image.Rect(92, 92, 96, 96))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dice, 1e-3)
	assert.InDelta(t, 1.0, iou, 1e-3)

	dice, _, err = score(probs, truth, opts, image.Rect(0, 0, 4, 4))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, dice, 1e-3)
}

func TestCanvas(t *testing.T) {
	mask := toGray([]float64{1, 1, 1, 1}, 2, 2, 0)
	full := canvas(mask, image.Pt(6, 6), image.Rect(2, 2, 4, 4))
	assert.Equal(t, image.Rect(0, 0, 6, 6), full.Bounds())
	assert.Equal(t, uint8(255), full.GrayAt(2, 2).Y)
	assert.Equal(t, uint8(255), full.GrayAt(3, 3).Y)
	assert.Equal(t, uint8(0), full.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(0), full.GrayAt(4, 4).Y)
}

func TestEDACommand(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"images", "masks"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
		for i := 0; i < 3; i++ {
			writePNG(t, filepath.Join(dir, sub, fmt.Sprintf("%d.png", i)), squareMask(8, image.Rect(0, 0, 8, 4)))
		}
	}
	histo := filepath.Join(t.TempDir(), "histo.png")

	out, err := run(t, "eda", dir, "--size", "8", "--out", histo)
	require.NoError(t, err)
	assert.Contains(t, out, "masks: 3")
	assert.FileExists(t, histo)
}
