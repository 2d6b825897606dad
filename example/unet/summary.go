package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"

	"github.com/sugarme/unet2d/unet"
)

func (a *app) newNet(device gotch.Device) (*unet.UNet, *nn.VarStore, error) {
	vs := nn.NewVarStore(device)
	net, err := unet.New(vs.Root(), a.cfg.Model,
		unet.WithLogger(a.logger),
		unet.WithInputSize(int64(a.cfg.Data.Height), int64(a.cfg.Data.Width)))
	if err != nil {
		return nil, nil, err
	}
	return net, vs, nil
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the parameters of the network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			net, _, err := a.newNet(gotch.CPU)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"NAME", "SHAPE", "PARAMS"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetBorder(false)
			for _, p := range net.Parameters() {
				var n int64 = 1
				size := p.Tensor.MustSize()
				for _, d := range size {
					n *= d
				}
				table.Append([]string{p.Name, fmt.Sprint(size), strconv.FormatInt(n, 10)})
			}
			table.SetFooter([]string{"", "TOTAL", strconv.FormatInt(net.NumParams(), 10)})
			table.Render()
			return nil
		},
	}
}
