package main

import (
	"context"

	"github.com/spf13/cobra"

	omronfins "github.com/TaishiUeda/OmronFinsEthernet"
)

type writeFlags struct {
	bit   uint8
	count uint16
}

func newWriteCmd(g *globalFlags) *cobra.Command {
	flags := &writeFlags{}

	cmd := &cobra.Command{
		Use:   "write <area> <address[.bit]> <type> <value...>",
		Short: "Write a memory area",
		Long: `Write values of the given element type starting at area:address.

One value is written as a scalar, several as a list whose length must match
--count (by default one element per value). A nonzero completion code is
printed with its description.

The PLC counts words, not values. For FLOAT, DOUBLE and the 32/64-bit
integer types write one value at a time and pass --count in words: 2 for a
32-bit value, 4 for a 64-bit value. Without --count such a write covers only
one word per value.

Examples:
  finsctl write dm 100 ushort 5 4 3
  finsctl write dm 200 float 1.5 --count 2
  finsctl write dm 300 double 2.25 --count 4
  finsctl write dm 300 str hello --count 3
  finsctl write cio_bit 10.3 bit 1`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseWrite(args, flags.count)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bit") {
				req.bit = flags.bit
			}
			return withClient(cmd, g, func(ctx context.Context, client *omronfins.Client, out output) error {
				return req.run(ctx, client, out)
			})
		},
	}

	cmd.Flags().Uint8Var(&flags.bit, "bit", 0, "Bit offset for bit areas")
	cmd.Flags().Uint16Var(&flags.count, "count", 0, "Element count sent in the command, in words for 32/64-bit types (0 = one per value)")
	return cmd
}
