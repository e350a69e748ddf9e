package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TaishiUeda/OmronFinsEthernet/internal/config"
)

var serviceActions = []string{"install", "uninstall", "start", "stop", "restart", "run"}

// program runs the poller under the OS service manager.
type program struct {
	cfg    *config.Config
	logger *zap.Logger
	svcLog service.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newServiceCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "service <install|uninstall|start|stop|restart|run>",
		Short: "Run the poller as an OS service",
		Long: `Manage finsctl as a system service (systemd, launchd, Windows SCM, ...).

install registers "finsctl service run --config <path>" with the service name
from the service section of the configuration. run is what the service
manager executes; it polls until the service is stopped.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: serviceActions,
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			if !isServiceAction(action) {
				return fmt.Errorf("unknown service action %q (use one of %v)", action, serviceActions)
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

			configPath, err := filepath.Abs(g.configPath)
			if err != nil {
				return err
			}
			prog := &program{cfg: cfg, logger: logger}
			svc, err := service.New(prog, serviceConfig(cfg, configPath))
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}

			if action == "run" {
				if l, err := svc.Logger(nil); err == nil {
					prog.svcLog = l
				} else {
					logger.Warn("service logger unavailable", zap.Error(err))
				}
				return svc.Run()
			}

			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("service %s failed: %w", action, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "service %s %s OK\n", cfg.Service.Name, action)
			return nil
		},
	}
}

func isServiceAction(action string) bool {
	for _, a := range serviceActions {
		if a == action {
			return true
		}
	}
	return false
}

func serviceConfig(cfg *config.Config, configPath string) *service.Config {
	return &service.Config{
		Name:        cfg.Service.Name,
		DisplayName: cfg.Service.DisplayName,
		Description: cfg.Service.Description,
		Arguments:   []string{"service", "run", "--config", configPath},
	}
}

// Start implements service.Interface. It must not block.
func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	r, err := newPollRunner(ctx, p.cfg, p.logger)
	if err != nil {
		cancel()
		p.errorf("failed to start poller: %v", err)
		return err
	}

	p.mu.Lock()
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer r.close()
		p.infof("polling %d tags every %s", len(r.poller.Tags()), p.cfg.Poll.Interval)
		if err := r.run(ctx); err != nil {
			p.errorf("poller stopped: %v", err)
		}
	}()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(s service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	p.infof("poller stopped")
	return nil
}

func (p *program) infof(format string, args ...interface{}) {
	if p.svcLog != nil {
		_ = p.svcLog.Infof(format, args...)
	}
	p.logger.Info(fmt.Sprintf(format, args...))
}

func (p *program) errorf(format string, args ...interface{}) {
	if p.svcLog != nil {
		_ = p.svcLog.Errorf(format, args...)
	}
	p.logger.Error(fmt.Sprintf(format, args...))
}
