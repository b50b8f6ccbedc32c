// Command vsm runs the Vehicle Signal Manager: it loads a ruleset and a
// signal-number map, wires up a signal transport, and dispatches every
// received signal through the rule tree's Dispatcher, Monitor Engine,
// and Emitter.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/covesa/vsm/internal/dashboard"
	"github.com/covesa/vsm/internal/engine"
	"github.com/covesa/vsm/internal/initialstate"
	"github.com/covesa/vsm/internal/ipc"
	"github.com/covesa/vsm/internal/replay"
	"github.com/covesa/vsm/internal/ruleset"
	"github.com/covesa/vsm/internal/state"
	"github.com/covesa/vsm/internal/value"
	"github.com/covesa/vsm/internal/vsi"
	"github.com/covesa/vsm/internal/vsmlog"
)

const defaultLogFile = "vsm.log"

// config holds all process configuration (spec.md §6.1).
type config struct {
	RulesetPath           string
	InitialState          string
	SignalNumberFile      string
	IPCModules            []string
	LogFile               string
	LogFormat             string
	LogConditionChecks    bool
	ReplayLogFile         string
	ReplayRate            float64
	DiagnosticsLogFormat  string
	WatchRuleset          bool
	WatchSignalNumberFile bool
	Dashboard             bool
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig parses flags and environment variables with precedence
// Flag > Env > Default.
func loadConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("vsm", flag.ContinueOnError)

	cfg := config{}
	fs.StringVar(&cfg.InitialState, "initial-state", getEnv("VSM_INITIAL_STATE", ""), "pre-seed state from a YAML list of \"name = value\" strings")
	fs.StringVar(&cfg.SignalNumberFile, "signal-number-file", getEnv("VSM_SIGNAL_NUMBER_FILE", ""), "path to the .vsi signal-number map (required)")
	ipcModules := fs.String("ipc-modules", getEnv("VSM_IPC_MODULES", ""), "comma-separated transport identifiers (empty uses the stdio debug transport)")
	fs.StringVar(&cfg.LogFile, "log-file", getEnv("VSM_LOG_FILE", defaultLogFile), "domain signal log destination (\"-\" for stdout)")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("VSM_LOG_FORMAT", ""), "domain signal log format (\"\" or \"catapult\")")
	noLogConditionChecks := fs.Bool("no-log-condition-checks", getEnvBool("VSM_NO_LOG_CONDITION_CHECKS", false), "suppress \"condition: ...\" log lines")
	fs.StringVar(&cfg.ReplayLogFile, "replay-log-file", getEnv("VSM_REPLAY_LOG_FILE", ""), "replay mode input: a previously recorded domain signal log")
	fs.Float64Var(&cfg.ReplayRate, "replay-rate", 0, "replay rate as a percentage of original timing, in [1, 10000] (default 100)")
	fs.StringVar(&cfg.DiagnosticsLogFormat, "diagnostics-log-format", getEnv("VSM_DIAGNOSTICS_LOG_FORMAT", "text"), "ambient diagnostics log format (json or text)")
	fs.BoolVar(&cfg.WatchRuleset, "watch-ruleset", getEnvBool("VSM_WATCH_RULESET", false), "hot-reload the ruleset file on change")
	fs.BoolVar(&cfg.WatchSignalNumberFile, "watch-signal-number-file", getEnvBool("VSM_WATCH_SIGNAL_NUMBER_FILE", false), "hot-reload the .vsi map on change")
	fs.BoolVar(&cfg.Dashboard, "dashboard", getEnvBool("VSM_DASHBOARD", false), "show a live terminal dashboard of state and condition status")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg.LogConditionChecks = !*noLogConditionChecks

	if *ipcModules != "" {
		cfg.IPCModules = strings.Split(*ipcModules, ",")
	}

	if fs.NArg() != 1 {
		return config{}, fmt.Errorf("expected exactly one positional argument (ruleset file), got %d", fs.NArg())
	}
	cfg.RulesetPath = fs.Arg(0)

	if cfg.SignalNumberFile == "" {
		return config{}, errors.New("--signal-number-file is required")
	}
	if cfg.LogFormat != "" && cfg.LogFormat != "catapult" {
		return config{}, fmt.Errorf("unsupported --log-format %q: must be \"\" or \"catapult\"", cfg.LogFormat)
	}
	if cfg.DiagnosticsLogFormat != "json" && cfg.DiagnosticsLogFormat != "text" {
		return config{}, fmt.Errorf("unsupported --diagnostics-log-format %q: must be \"json\" or \"text\"", cfg.DiagnosticsLogFormat)
	}
	if cfg.ReplayLogFile != "" && cfg.ReplayRate != 0 {
		if err := replay.ValidateRate(cfg.ReplayRate); err != nil {
			return config{}, err
		}
	}
	for _, name := range cfg.IPCModules {
		if name != "stdio" {
			return config{}, fmt.Errorf("unsupported IPC module %q: only \"stdio\" is available", name)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func setupDiagnostics(format string) *slog.Logger {
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	return slog.New(handler)
}

func run(ctx context.Context, cfg config) error {
	diag := setupDiagnostics(cfg.DiagnosticsLogFormat)
	slog.SetDefault(diag)

	signumMap, err := vsi.Load(cfg.SignalNumberFile)
	if err != nil {
		return fmt.Errorf("failed to load signal-number file: %w", err)
	}
	signums := vsi.NewWatchable(signumMap)

	rulesetData, err := os.ReadFile(cfg.RulesetPath)
	if err != nil {
		return fmt.Errorf("failed to read ruleset file: %w", err)
	}
	replaying := cfg.ReplayLogFile != ""
	parsed, err := ruleset.Parse(rulesetData, signums, replaying)
	if err != nil {
		return fmt.Errorf("failed to parse ruleset: %w", err)
	}

	sink, closeSink, err := openLogSink(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFormat := vsmlog.FormatText
	if cfg.LogFormat == "catapult" {
		logFormat = vsmlog.FormatCatapult
	}
	start := time.Now()
	vlog := vsmlog.New(sink, logFormat, closeSink, vsmlog.WithClock(func() int64 {
		return time.Since(start).Milliseconds()
	}))
	defer vlog.Close()

	store := state.New(vlog)

	if cfg.InitialState != "" {
		data, err := os.ReadFile(cfg.InitialState)
		if err != nil {
			return fmt.Errorf("failed to read initial-state file: %w", err)
		}
		entries, err := initialstate.Load(data)
		if err != nil {
			return fmt.Errorf("failed to load initial state: %w", err)
		}
		for _, e := range entries {
			store.Update(e.Signal, e.Value)
		}
	}

	transport, err := buildTransport(cfg.IPCModules)
	if err != nil {
		return fmt.Errorf("failed to initialize IPC transport: %w", err)
	}
	defer transport.Close()

	eng := engine.New(store, parsed, vlog, signums, transport,
		engine.WithClock(func() int64 { return time.Since(start).Milliseconds() }),
		engine.WithConditionCheckLogging(cfg.LogConditionChecks))

	eng.RunUnconditionalEmits(parsed)

	if cfg.WatchRuleset {
		watcher := ruleset.NewWatcher(cfg.RulesetPath, signums, replaying, func(result *ruleset.Result, err error) {
			if err != nil {
				diag.Error("ruleset reload failed, keeping previous rule tree", "error", err)
				return
			}
			eng.ReplaceRuleset(result)
			diag.Info("ruleset reloaded")
		}, diag)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				diag.Error("ruleset watcher stopped", "error", err)
			}
		}()
	}

	if cfg.WatchSignalNumberFile {
		go func() {
			if err := signums.Watch(ctx, cfg.SignalNumberFile, diag, 0); err != nil {
				diag.Error("signal-number file watcher stopped", "error", err)
			}
		}()
	}

	if cfg.ReplayLogFile != "" {
		data, err := os.ReadFile(cfg.ReplayLogFile)
		if err != nil {
			return fmt.Errorf("failed to read replay log: %w", err)
		}
		rate := cfg.ReplayRate
		if rate == 0 {
			rate = 100
		}
		signals := replay.Parse(data, func(line string, err error) {
			diag.Warn("skipping malformed replay log line", "error", err, "line", line)
		})
		runner := replay.NewRunner(eng, rate, func() int64 { return time.Since(start).Milliseconds() })
		runner.Run(signals)
	}

	if cfg.Dashboard {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to create dashboard screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("failed to initialize dashboard screen: %w", err)
		}
		defer screen.Fini()
		dash := dashboard.New(screen, store, parsed.Tree)
		go dash.Run(ctx)
	}

	return receiveLoop(ctx, transport, eng, diag)
}

func receiveLoop(ctx context.Context, transport ipc.Transport, eng *engine.Engine, diag *slog.Logger) error {
	messages := make(chan struct {
		signal string
		raw    string
		err    error
	})
	go func() {
		for {
			sig, raw, err := transport.Receive()
			messages <- struct {
				signal string
				raw    string
				err    error
			}{sig, raw, err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-messages:
			if msg.err != nil {
				if msg.err == io.EOF {
					return nil
				}
				diag.Error("ipc receive failed", "error", msg.err)
				return nil
			}
			if msg.signal == "quit" {
				return nil
			}
			v, err := value.Parse(msg.raw)
			if err != nil {
				diag.Error("incorrect value", "signal", msg.signal, "raw", msg.raw)
				continue
			}
			eng.Dispatch(msg.signal, v)
		}
	}
}

func openLogSink(path string) (io.Writer, func() error, error) {
	if path == "" {
		path = defaultLogFile
	}
	if path == "-" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func buildTransport(modules []string) (ipc.Transport, error) {
	if len(modules) == 0 {
		return ipc.NewStdioTransport(os.Stdin, os.Stdout, nil), nil
	}
	transports := make([]ipc.Transport, 0, len(modules))
	for range modules {
		transports = append(transports, ipc.NewStdioTransport(os.Stdin, os.Stdout, nil))
	}
	if len(transports) == 1 {
		return transports[0], nil
	}
	return ipc.NewFanout(transports...), nil
}
