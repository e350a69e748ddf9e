package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	omronfins "github.com/TaishiUeda/OmronFinsEthernet"
)

const historyFile = ".finsctl_history"

var shellVerbs = []string{"read", "write", "stats", "areas", "help", "exit", "quit"}

type shellFlags struct {
	exec     string
	interval time.Duration
}

type memoryClient interface {
	omronfins.MemoryReader
	omronfins.MemoryWriter
}

// shell runs read/write lines against one client.
type shell struct {
	client   memoryClient
	out      output
	timeout  time.Duration
	metrics  *omronfins.MetricsCollector
	watchdog *omronfins.ConnectionWatchdog
}

func newShellCmd(g *globalFlags) *cobra.Command {
	flags := &shellFlags{}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive read/write session",
		Long: `Open an interactive session with line editing and history.

Commands:
  read  <area> <address[.bit]> <count> [type]
  write <area> <address[.bit]> <type> <value...>
  stats                 reachability and per-operation metrics
  areas                 list memory areas and element types
  help | exit | quit

With --exec the given command line runs once (or every --interval) and the
session is not opened.`,
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

			metrics := omronfins.NewMetricsCollector()
			client, err := dial(cfg, logger, metrics.Interceptor())
			if err != nil {
				return err
			}
			defer client.Close()

			watchdog := omronfins.NewConnectionWatchdog(0)
			if err := client.Use(watchdog); err != nil {
				return err
			}

			sh := &shell{
				client:   client,
				out:      out,
				timeout:  cfg.Timeouts.Command,
				metrics:  metrics,
				watchdog: watchdog,
			}
			if strings.TrimSpace(flags.exec) != "" {
				return sh.execLoop(cmd.Context(), flags.exec, flags.interval)
			}
			if !out.quiet {
				sh.printHelp()
			}
			return sh.repl()
		},
	}

	cmd.Flags().StringVar(&flags.exec, "exec", "", "Execute one command line (quoted) and exit, e.g. \"read dm 100 3\"")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "With --exec, repeat the command at this interval")
	return cmd
}

func (s *shell) execLoop(ctx context.Context, line string, interval time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		err := s.handle(ctx, line)
		if interval <= 0 {
			return err
		}
		if err != nil {
			s.out.printError(err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *shell) repl() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		var matches []string
		for _, v := range shellVerbs {
			if strings.HasPrefix(v, strings.ToLower(input)) {
				matches = append(matches, v)
			}
		}
		return matches
	})

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, err := line.Prompt("fins> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C pressed, keep session alive.
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out.stdout)
				return nil
			}
			return fmt.Errorf("prompt: %w", err)
		}

		text := strings.TrimSpace(input)
		if text == "" {
			continue
		}
		line.AppendHistory(text)
		switch strings.ToLower(text) {
		case "exit", "quit":
			return nil
		}

		if err := s.handle(context.Background(), text); err != nil {
			s.out.printError(err)
		}
	}
}

// handle runs one command line under the per-command timeout.
func (s *shell) handle(parent context.Context, text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	ctx, cancel := parent, context.CancelFunc(func() {})
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, s.timeout)
	}
	defer cancel()

	switch verb {
	case "read", "r":
		typeName := ""
		if len(args) == 4 {
			typeName, args = args[3], args[:3]
		}
		req, err := parseRead(args, typeName)
		if err != nil {
			return err
		}
		return req.run(ctx, s.client, s.out)

	case "write", "w":
		req, err := parseWrite(args, 0)
		if err != nil {
			return err
		}
		return req.run(ctx, s.client, s.out)

	case "stats":
		return s.printStats()

	case "areas":
		return printAreas(s.out)

	case "help", "?":
		s.printHelp()
		return nil

	default:
		return fmt.Errorf("unknown command %q (type help)", verb)
	}
}

type shellStats struct {
	Reachable  bool                                                `json:"reachable"`
	Exchanges  int64                                               `json:"exchanges"`
	Failures   int64                                               `json:"failures"`
	LastRTT    string                                              `json:"last_rtt"`
	Downtime   string                                              `json:"total_downtime"`
	LastError  string                                              `json:"last_error,omitempty"`
	Operations map[omronfins.OperationType]omronfins.OperationStats `json:"operations"`
}

func (s *shell) printStats() error {
	stats := shellStats{Operations: map[omronfins.OperationType]omronfins.OperationStats{}}
	if s.watchdog != nil {
		ws := s.watchdog.Stats()
		stats.Reachable = ws.Reachable
		stats.Exchanges = ws.Exchanges
		stats.Failures = ws.Failures
		stats.LastRTT = ws.LastRTT.String()
		stats.Downtime = ws.TotalDowntime.String()
		if ws.LastErr != nil {
			stats.LastError = ws.LastErr.Error()
		}
	}
	if s.metrics != nil {
		stats.Operations = s.metrics.GetAllStats()
	}

	if s.out.mode == outputJSON {
		return s.out.encode(s.out.stdout, stats)
	}
	w := s.out.stdout
	fmt.Fprintf(w, "reachable: %v  exchanges: %d  failures: %d  last rtt: %s  downtime: %s\n",
		stats.Reachable, stats.Exchanges, stats.Failures, stats.LastRTT, stats.Downtime)
	if stats.LastError != "" {
		fmt.Fprintf(w, "last error: %s\n", stats.LastError)
	}
	for _, op := range []omronfins.OperationType{omronfins.OpReadMemArea, omronfins.OpWriteMemArea} {
		st, ok := stats.Operations[op]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%-14s count=%d errors=%d end_code_errors=%d avg=%s\n",
			op, st.Count, st.Errors, st.EndCodeErrors, st.AvgDuration)
	}
	return nil
}

func (s *shell) printHelp() {
	fmt.Fprint(s.out.stdout, `Commands:
  read  <area> <address[.bit]> <count> [type]      e.g. read dm 100 3, read dm 200 2 float
  write <area> <address[.bit]> <type> <value...>   e.g. write dm 100 ushort 5 4 3
  stats | areas | help | exit
`)
}
