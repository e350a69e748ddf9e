package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	omronfins "github.com/TaishiUeda/OmronFinsEthernet"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/config"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/poller"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/sink/kafkasink"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/sink/mqttsink"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/sink/redissink"
)

type pollFlags struct {
	once   bool
	stdout bool
}

func newPollCmd(g *globalFlags) *cobra.Command {
	flags := &pollFlags{}

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll the configured tags and publish them",
		Long: `Read every tag of poll.tags on poll.interval and publish the samples to the
enabled sinks (mqtt, redis, kafka). Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var extra []poller.Sink
			if flags.stdout || flags.once {
				extra = append(extra, &printSink{out: out})
			}
			r, err := newPollRunner(ctx, cfg, logger, extra...)
			if err != nil {
				return err
			}
			defer r.close()

			if flags.once {
				samples, err := r.poller.PollOnce(ctx)
				if err != nil {
					return err
				}
				r.poller.Publish(ctx, samples)
				return nil
			}
			return r.run(ctx)
		},
	}

	cmd.Flags().BoolVar(&flags.once, "once", false, "Poll once, print the samples and exit")
	cmd.Flags().BoolVar(&flags.stdout, "stdout", false, "Also print every published sample")
	return cmd
}

// pollRunner owns the client, the sinks and the watchdog of one poller.
type pollRunner struct {
	client   *omronfins.Client
	poller   *poller.Poller
	watchdog *omronfins.ConnectionWatchdog
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func newPollRunner(ctx context.Context, cfg *config.Config, logger *zap.Logger, extra ...poller.Sink) (*pollRunner, error) {
	tags, err := cfg.Tags()
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("no tags configured (poll.tags in %s)", config.DefaultPath)
	}

	sinks, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, extra...)

	client, err := dial(cfg, logger)
	if err != nil {
		closeSinks(sinks, logger)
		return nil, err
	}
	watchdog := omronfins.NewConnectionWatchdog(0)
	if err := client.Use(watchdog); err != nil {
		client.Close()
		closeSinks(sinks, logger)
		return nil, err
	}

	p, err := poller.New(client, tags,
		poller.WithInterval(cfg.Poll.Interval),
		poller.WithOnlyChanges(cfg.Poll.OnlyChanges),
		poller.WithSinks(sinks...),
		poller.WithLogger(logger),
	)
	if err != nil {
		client.Close()
		closeSinks(sinks, logger)
		return nil, err
	}
	return &pollRunner{client: client, poller: p, watchdog: watchdog, logger: logger}, nil
}

// run polls until ctx ends and logs reachability changes meanwhile.
func (r *pollRunner) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-r.watchdog.Events():
				if evt.Reachable {
					r.logger.Info("plc reachable", zap.Duration("downtime", evt.Downtime))
				} else {
					r.logger.Warn("plc unreachable", zap.Error(evt.Err))
				}
			}
		}
	}()

	err := r.poller.Run(ctx)
	cancel()
	r.wg.Wait()
	return err
}

func (r *pollRunner) close() {
	if err := r.poller.Close(); err != nil {
		r.logger.Warn("closing sinks", zap.Error(err))
	}
	_ = r.client.Close()
}

func buildSinks(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]poller.Sink, error) {
	var sinks []poller.Sink
	if cfg.MQTT.Enabled {
		s, err := mqttsink.New(cfg.MQTT, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Redis.Enabled {
		s, err := redissink.New(ctx, cfg.Redis, logger)
		if err != nil {
			closeSinks(sinks, logger)
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Kafka.Enabled {
		s, err := kafkasink.New(cfg.Kafka, logger)
		if err != nil {
			closeSinks(sinks, logger)
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func closeSinks(sinks []poller.Sink, logger *zap.Logger) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			logger.Warn("closing sink", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
}

// printSink writes samples to the command output.
type printSink struct {
	out output
}

func (p *printSink) Name() string { return "stdout" }

func (p *printSink) Publish(_ context.Context, samples []poller.Sample) error {
	for _, s := range samples {
		s.Value = displayValue(s.Value)
		if p.out.mode == outputJSON {
			if err := p.out.encode(p.out.stdout, s); err != nil {
				return err
			}
			continue
		}
		if !s.OK() {
			if err := p.out.print(s.Tag, "error: "+s.Error); err != nil {
				return err
			}
			continue
		}
		if err := p.out.print(s.Tag, s.Value); err != nil {
			return err
		}
	}
	return nil
}

func (p *printSink) Close() error { return nil }
