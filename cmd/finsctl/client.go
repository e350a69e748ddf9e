package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	omronfins "github.com/TaishiUeda/OmronFinsEthernet"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/config"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/logging"
)

// globalFlags are shared by every subcommand. Flags set on the command line
// override the configuration file.
type globalFlags struct {
	configPath string

	plcHost    string
	plcPort    int
	plcNetwork uint8
	plcNode    uint8
	plcUnit    uint8

	localHost    string
	localPort    int
	localNetwork uint8
	localNode    uint8
	localUnit    uint8

	timeout     time.Duration
	sendTimeout time.Duration
	recvTimeout time.Duration
	serviceID   uint8

	format   string
	logLevel string
	quiet    bool
}

func (g *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", config.DefaultPath, "Configuration file")

	pf.StringVar(&g.plcHost, "plc-host", "", "PLC host/IP")
	pf.IntVar(&g.plcPort, "plc-port", 0, "PLC UDP port")
	pf.Uint8Var(&g.plcNetwork, "plc-network", 0, "PLC FINS network number")
	pf.Uint8Var(&g.plcNode, "plc-node", 0, "PLC FINS node address")
	pf.Uint8Var(&g.plcUnit, "plc-unit", 0, "PLC FINS unit address")

	pf.StringVar(&g.localHost, "local-host", "", "Local host/IP to bind (OS choice if empty)")
	pf.IntVar(&g.localPort, "local-port", 0, "Local UDP port (0 = auto)")
	pf.Uint8Var(&g.localNetwork, "local-network", 0, "Local FINS network number")
	pf.Uint8Var(&g.localNode, "local-node", 0, "Local FINS node address")
	pf.Uint8Var(&g.localUnit, "local-unit", 0, "Local FINS unit address")

	pf.DurationVar(&g.timeout, "timeout", 0, "Per-command timeout")
	pf.DurationVar(&g.sendTimeout, "send-timeout", 0, "UDP send timeout")
	pf.DurationVar(&g.recvTimeout, "recv-timeout", 0, "UDP receive timeout")
	pf.Uint8Var(&g.serviceID, "sid", 0, "FINS service id")

	pf.StringVar(&g.format, "format", string(outputText), "Output format: text|json")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "Print results without labels")
}

// load reads the configuration file and applies the flags that were set.
func (g *globalFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("plc-host") {
		cfg.PLC.Host = g.plcHost
	}
	if changed("plc-port") {
		cfg.PLC.Port = g.plcPort
	}
	if changed("plc-network") {
		cfg.PLC.Network = g.plcNetwork
	}
	if changed("plc-node") {
		cfg.PLC.Node = g.plcNode
	}
	if changed("plc-unit") {
		cfg.PLC.Unit = g.plcUnit
	}
	if changed("local-host") {
		cfg.Local.Host = g.localHost
	}
	if changed("local-port") {
		cfg.Local.Port = g.localPort
	}
	if changed("local-network") {
		cfg.Local.Network = g.localNetwork
	}
	if changed("local-node") {
		cfg.Local.Node = g.localNode
	}
	if changed("local-unit") {
		cfg.Local.Unit = g.localUnit
	}
	if changed("timeout") {
		cfg.Timeouts.Command = g.timeout
	}
	if changed("send-timeout") {
		cfg.Timeouts.Send = g.sendTimeout
	}
	if changed("recv-timeout") {
		cfg.Timeouts.Receive = g.recvTimeout
	}
	if changed("sid") {
		cfg.PLC.ServiceID = g.serviceID
	}
	if changed("log-level") {
		cfg.Log.Level = g.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *globalFlags) output(cmd *cobra.Command) (output, error) {
	return newOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), g.format, g.quiet)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

// dial opens a UDP client to the configured PLC with request validation and
// operation logging installed. extra interceptors run innermost.
func dial(cfg *config.Config, logger *zap.Logger, extra ...omronfins.Interceptor) (*omronfins.Client, error) {
	local, err := cfg.LocalAddress()
	if err != nil {
		return nil, err
	}
	plc, err := cfg.PLCAddress()
	if err != nil {
		return nil, err
	}

	client, err := omronfins.NewUDPClient(local, plc,
		omronfins.WithLogger(logger),
		omronfins.WithServiceID(cfg.PLC.ServiceID),
		omronfins.WithSendTimeout(cfg.Timeouts.Send),
		omronfins.WithReceiveTimeout(cfg.Timeouts.Receive),
		omronfins.WithInterceptor(omronfins.ChainInterceptors(append([]omronfins.Interceptor{
			omronfins.ValidationInterceptor(),
			omronfins.LoggingInterceptor(logger),
		}, extra...)...)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	client.SetDestination(plc.FinAddress, cfg.PLC.ResponseDelay)

	logger.Debug("client ready",
		zap.Stringer("plc", plc.UdpAddress),
		zap.Stringer("plc_fins", plc.FinAddress),
		zap.Stringer("local_fins", local.FinAddress),
	)
	return client, nil
}
