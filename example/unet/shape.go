package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sugarme/unet2d/shape"
)

func (a *app) shapeCmd() *cobra.Command {
	var batch int64
	cmd := &cobra.Command{
		Use:   "shape",
		Short: "Print the inferred shape of every stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.cfg.Model
			input := shape.Dims{N: batch, H: int64(a.cfg.Data.Height), W: int64(a.cfg.Data.Width), C: m.InChannels}
			plan, err := shape.Infer(m.Arch(), input)
			if err != nil {
				return err
			}
			if plan.Truncated() {
				a.logger.Warn("odd extent pooled, last row or column dropped", "input", input)
			}
			writePlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}
	cmd.Flags().Int64Var(&batch, "batch", 1, "batch size")
	return cmd
}

func writePlan(w io.Writer, plan *shape.Plan) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"STAGE", "FILTERS", "IN", "SKIP", "OUT", "CROP", "TRUNCATED"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, s := range plan.Stages() {
		skip, crop := "-", "-"
		if s.Skip != (shape.Dims{}) {
			skip = s.Skip.String()
		}
		if s.CropTop != 0 || s.CropLeft != 0 {
			crop = fmt.Sprintf("%d,%d", s.CropTop, s.CropLeft)
		}
		table.Append([]string{
			s.Name,
			strconv.FormatInt(s.Filters, 10),
			s.In.String(),
			skip,
			s.Out.String(),
			crop,
			strconv.FormatBool(s.Truncated),
		})
	}
	table.Append([]string{"out", strconv.FormatInt(plan.Arch.OutChannels, 10), plan.Expand[shape.Depth-1].Out.String(), "-", plan.Output.String(), "-", "false"})
	table.Render()
}
