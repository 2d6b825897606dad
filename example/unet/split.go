package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sugarme/unet2d/dataset"
)

func (a *app) splitCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "split DIR",
		Short: "Split DIR/images and DIR/masks into train, valid and test sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := dataset.Split(args[0], a.cfg.Data.SplitRate, a.cfg.Data.Seed)
			if err != nil {
				return err
			}
			a.logger.Info("dataset split", "train", len(s.Train), "valid", len(s.Valid), "test", len(s.Test))

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return dataset.WriteManifest(w, s)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "manifest file (default stdout)")
	return cmd
}
