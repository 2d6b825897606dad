package dataset

import (
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DefaultSeed is the shuffle seed used when none is given.
const DefaultSeed int64 = 42

// Pair is an image file and its mask file.
type Pair struct {
	Image string
	Mask  string
}

// Splits holds the train, validation and test partitions of a dataset.
type Splits struct {
	Train []Pair
	Valid []Pair
	Test  []Pair
}

// Split pairs sorted dir/images/* with sorted dir/masks/* and partitions the
// pairs with a seeded shuffle. Validation and test each receive
// int(ratio * total) pairs; the rest is training data.
func Split(dir string, ratio float64, seed int64) (*Splits, error) {
	if ratio < 0 || ratio >= 0.5 {
		return nil, fmt.Errorf("split ratio must be in [0, 0.5), got %v", ratio)
	}

	images, err := glob(filepath.Join(dir, "images", "*"))
	if err != nil {
		return nil, err
	}
	masks, err := glob(filepath.Join(dir, "masks", "*"))
	if err != nil {
		return nil, err
	}
	if len(images) != len(masks) {
		return nil, fmt.Errorf("found %d images but %d masks in %v", len(images), len(masks), dir)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no images found in %v", filepath.Join(dir, "images"))
	}

	pairs := make([]Pair, len(images))
	for i := range images {
		pairs[i] = Pair{Image: images[i], Mask: masks[i]}
	}

	total := len(pairs)
	holdout := int(ratio * float64(total))
	perm := rand.New(rand.NewSource(seed)).Perm(total)

	s := &Splits{}
	for i, idx := range perm {
		switch {
		case i < holdout:
			s.Valid = append(s.Valid, pairs[idx])
		case i < 2*holdout:
			s.Test = append(s.Test, pairs[idx])
		default:
			s.Train = append(s.Train, pairs[idx])
		}
	}

	return s, nil
}

func glob(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

var manifestColumns = []string{"split", "image", "mask"}

// WriteManifest writes s as CSV with columns split,image,mask.
func WriteManifest(w io.Writer, s *Splits) error {
	records := [][]string{manifestColumns}
	add := func(name string, pairs []Pair) {
		for _, p := range pairs {
			records = append(records, []string{name, p.Image, p.Mask})
		}
	}
	add("train", s.Train)
	add("valid", s.Valid)
	add("test", s.Test)

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String))
	if df.Err != nil {
		return df.Err
	}
	return df.WriteCSV(w)
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(r io.Reader) (*Splits, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String))
	if df.Err != nil {
		return nil, df.Err
	}

	names := make(map[string]bool)
	for _, n := range df.Names() {
		names[n] = true
	}
	for _, c := range manifestColumns {
		if !names[c] {
			return nil, fmt.Errorf("manifest is missing column %q", c)
		}
	}

	pairs := func(split string) ([]Pair, error) {
		sub := df.Filter(dataframe.F{Colname: "split", Comparator: series.Eq, Comparando: split})
		if sub.Err != nil {
			return nil, sub.Err
		}
		if sub.Nrow() == 0 {
			return nil, nil
		}
		images := sub.Col("image").Records()
		masks := sub.Col("mask").Records()
		out := make([]Pair, len(images))
		for i := range images {
			out[i] = Pair{Image: images[i], Mask: masks[i]}
		}
		return out, nil
	}

	s := &Splits{}
	var err error
	if s.Train, err = pairs("train"); err != nil {
		return nil, err
	}
	if s.Valid, err = pairs("valid"); err != nil {
		return nil, err
	}
	if s.Test, err = pairs("test"); err != nil {
		return nil, err
	}
	return s, nil
}
