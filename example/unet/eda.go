package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sugarme/unet2d/dataset"
)

func (a *app) edaCmd() *cobra.Command {
	var (
		manifest  string
		out       string
		bins      int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "eda DIR",
		Short: "Plot the mask coverage histogram of a dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := a.edaPairs(args, manifest)
			if err != nil {
				return err
			}
			ds, err := dataset.NewDataset(pairs, a.cfg.Options())
			if err != nil {
				return err
			}
			l, err := dataset.NewLoader(ds, a.cfg.Data.BatchSize, dataset.WithLoaderLogger(a.logger))
			if err != nil {
				return err
			}
			cov, err := dataset.Coverages(cmd.Context(), l, float32(threshold))
			if err != nil {
				return err
			}

			var sum float64
			for _, c := range cov {
				sum += c
			}
			fmt.Fprintf(cmd.OutOrStdout(), "masks: %d, mean coverage: %.4f\n", len(cov), sum/float64(len(cov)))

			return coverageHistogram(cov, bins, out)
		},
	}
	cmd.Flags().StringVar(&manifest, "manifest", "", "read pairs from a split manifest instead of DIR")
	cmd.Flags().StringVarP(&out, "out", "o", "coverage-histo.png", "histogram image")
	cmd.Flags().IntVar(&bins, "bins", 20, "histogram bins")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "foreground threshold")
	return cmd
}

func (a *app) edaPairs(args []string, manifest string) ([]dataset.Pair, error) {
	var s *dataset.Splits
	switch {
	case manifest != "":
		f, err := os.Open(manifest)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if s, err = dataset.ReadManifest(f); err != nil {
			return nil, err
		}
	case len(args) == 1:
		var err error
		if s, err = dataset.Split(args[0], 0, a.cfg.Data.Seed); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("either DIR or --manifest is required")
	}

	var pairs []dataset.Pair
	pairs = append(pairs, s.Train...)
	pairs = append(pairs, s.Valid...)
	pairs = append(pairs, s.Test...)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no masks to analyse")
	}
	return pairs, nil
}

func coverageHistogram(cov []float64, bins int, path string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Mask coverage"
	p.X.Label.Text = "foreground fraction"
	p.Y.Label.Text = "masks"

	v := make(plotter.Values, len(cov))
	copy(v, cov)
	h, err := plotter.NewHist(v, bins)
	if err != nil {
		return err
	}
	p.Add(h)

	return p.Save(4*vg.Inch, 4*vg.Inch, path)
}
