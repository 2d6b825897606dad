package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	ts "github.com/sugarme/gotch/tensor"
	"golang.org/x/sync/errgroup"
)

// Sample is a decoded image and its mask, both CHW float32 tensors.
type Sample struct {
	Image *ts.Tensor // [3, H, W]
	Mask  *ts.Tensor // [1, H, W]
}

// Drop releases both tensors.
func (s Sample) Drop() {
	s.Image.MustDrop()
	s.Mask.MustDrop()
}

// Dataset decodes image/mask pairs on demand.
type Dataset struct {
	pairs []Pair
	opts  Options
}

func NewDataset(pairs []Pair, opts Options) (*Dataset, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Dataset{pairs: pairs, opts: opts}, nil
}

func (ds *Dataset) Len() int {
	return len(ds.pairs)
}

func (ds *Dataset) Options() Options {
	return ds.opts
}

// Item decodes the pair at idx.
func (ds *Dataset) Item(idx int) (*Sample, error) {
	img, mask, err := ds.values(idx)
	if err != nil {
		return nil, err
	}
	h, w := int64(ds.opts.Height), int64(ds.opts.Width)
	return &Sample{
		Image: ts.MustOfSlice(img).MustView([]int64{3, h, w}, true),
		Mask:  ts.MustOfSlice(mask).MustView([]int64{1, h, w}, true),
	}, nil
}

func (ds *Dataset) values(idx int) (img, mask []float32, err error) {
	if idx < 0 || idx >= len(ds.pairs) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(ds.pairs))
	}
	p := ds.pairs[idx]
	if img, err = ReadImage(p.Image, ds.opts); err != nil {
		return nil, nil, err
	}
	if mask, err = ReadMask(p.Mask, ds.opts); err != nil {
		return nil, nil, err
	}
	return img, mask, nil
}

// Batch is a stack of samples, images [B, 3, H, W] and masks [B, 1, H, W].
type Batch struct {
	Images *ts.Tensor
	Masks  *ts.Tensor
	// Indices are the dataset indices of the batch items, in order.
	Indices []int
}

func (b *Batch) Size() int {
	return len(b.Indices)
}

func (b *Batch) Drop() {
	b.Images.MustDrop()
	b.Masks.MustDrop()
}

const DefaultBatchSize = 8

// Loader yields batches from a Dataset. Items of one batch are decoded
// concurrently; batches are produced in order.
type Loader struct {
	ds        *Dataset
	batchSize int
	shuffle   bool
	repeat    bool
	workers   int
	rng       *rand.Rand
	logger    *slog.Logger

	order  []int
	cursor int
	epoch  int
}

type LoaderOption func(*Loader)

// WithShuffle permutes the dataset order each epoch using seed.
func WithShuffle(seed int64) LoaderOption {
	return func(l *Loader) {
		l.shuffle = true
		l.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRepeat restarts from the beginning once the dataset is exhausted, so
// HasNext is always true for a non-empty dataset.
func WithRepeat() LoaderOption {
	return func(l *Loader) { l.repeat = true }
}

// WithWorkers bounds the number of concurrent decodes. Zero or less means
// one decode per batch item.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) { l.workers = n }
}

func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

func NewLoader(ds *Dataset, batchSize int, opts ...LoaderOption) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	l := &Loader{
		ds:        ds,
		batchSize: batchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.Reset()
	return l, nil
}

// Reset starts a new epoch.
func (l *Loader) Reset() {
	l.order = make([]int, l.ds.Len())
	for i := range l.order {
		l.order[i] = i
	}
	if l.shuffle {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
	l.cursor = 0
}

// Epoch is the number of completed passes over the dataset.
func (l *Loader) Epoch() int {
	return l.epoch
}

func (l *Loader) HasNext() bool {
	if l.ds.Len() == 0 {
		return false
	}
	return l.repeat || l.cursor < len(l.order)
}

// Next decodes the next batch. The last batch of an epoch may be smaller
// than the batch size.
func (l *Loader) Next(ctx context.Context) (*Batch, error) {
	if !l.HasNext() {
		return nil, fmt.Errorf("loader exhausted after %d samples", len(l.order))
	}
	if l.cursor >= len(l.order) {
		l.epoch++
		l.logger.Debug("loader epoch done", "epoch", l.epoch)
		l.Reset()
	}

	end := l.cursor + l.batchSize
	if end > len(l.order) {
		end = len(l.order)
	}
	indices := append([]int(nil), l.order[l.cursor:end]...)

	opts := l.ds.opts
	plane := opts.Height * opts.Width
	images := make([]float32, len(indices)*3*plane)
	masks := make([]float32, len(indices)*plane)

	g, ctx := errgroup.WithContext(ctx)
	if l.workers > 0 {
		g.SetLimit(l.workers)
	}
	for i, idx := range indices {
		i, idx := i, idx
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, mask, err := l.ds.values(idx)
			if err != nil {
				return err
			}
			copy(images[i*3*plane:], img)
			copy(masks[i*plane:], mask)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	l.cursor = end

	b, h, w := int64(len(indices)), int64(opts.Height), int64(opts.Width)
	return &Batch{
		Images:  ts.MustOfSlice(images).MustView([]int64{b, 3, h, w}, true),
		Masks:   ts.MustOfSlice(masks).MustView([]int64{b, 1, h, w}, true),
		Indices: indices,
	}, nil
}
