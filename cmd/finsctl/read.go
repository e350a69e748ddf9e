package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	omronfins "github.com/TaishiUeda/OmronFinsEthernet"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/config"
)

type readFlags struct {
	typeName string
	bit      uint8
}

func newReadCmd(g *globalFlags) *cobra.Command {
	flags := &readFlags{}

	cmd := &cobra.Command{
		Use:   "read <area> <address[.bit]> <count>",
		Short: "Read a memory area",
		Long: `Read count elements starting at area:address and print them decoded as --type.

Examples:
  finsctl read dm 100 3
  finsctl read DM_WORD 200 2 --type float
  finsctl read cio_bit 10.3 1 --type bit
  finsctl read dm 300 5 --type str`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseRead(args, flags.typeName)
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

	cmd.Flags().StringVarP(&flags.typeName, "type", "t", "USHORT", "Element type (see 'finsctl areas')")
	cmd.Flags().Uint8Var(&flags.bit, "bit", 0, "Bit offset for bit areas")
	return cmd
}

// withClient loads the configuration, dials the PLC and runs fn under the
// per-command timeout. Errors are printed in the selected format.
func withClient(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, client *omronfins.Client, out output) error) error {
	out, err := g.output(cmd)
	if err != nil {
		return err
	}
	cfg, err := g.load(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := dial(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := commandContext(cmd.Context(), cfg)
	defer cancel()
	if err := fn(ctx, client, out); err != nil {
		logger.Debug("command failed", zap.Error(err))
		return err
	}
	return nil
}

func commandContext(parent context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if cfg.Timeouts.Command <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, cfg.Timeouts.Command)
}
