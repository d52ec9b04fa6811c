package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidviz/internal/config"
	"github.com/san-kum/fluidviz/internal/gui"
	"github.com/san-kum/fluidviz/internal/storage"
)

const defaultDataDir = ".fluidviz"

type options struct {
	write      string
	load       string
	configFile string
	preset     string
	logFile    string
	logLevel   string
	dataDir    string
	window     bool
}

// usageError is a command line the program cannot act on. It is reported
// with the usage text of the command that rejected it.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// newFrontend opens the display. Tests replace it.
var newFrontend = func(cfg *config.Config, window bool) (gui.Frontend, error) {
	if window {
		return gui.OpenWindow(cfg.View.Width, cfg.View.Height, "fluidviz")
	}
	t, err := gui.NewTerminal(nil)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return 1
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "fluidviz [-l|-w <filename>]",
		Short: "real-time 3D smoke simulation, recording and playback",
		Long: `fluidviz runs a 3D smoke simulation and draws it live.

With -w the density of every simulated frame is recorded to a file;
with -l a recording is played back at 16 frames per second.

Keys: c cube, s slice, [ ] move slice, i info, space pause, Esc quit.
Mouse: left drag rotates, right drag moves the light, wheel zooms.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisualizer(cmd, o)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.Flags().StringVarP(&o.write, "write", "w", "", "simulate and record every frame to `filename`")
	root.Flags().StringVarP(&o.load, "load", "l", "", "play back the recording `filename`")
	root.Flags().BoolVar(&o.window, "window", false, "draw into a raylib window (needs a -tags raylib build)")

	pf := root.PersistentFlags()
	pf.StringVar(&o.configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&o.preset, "preset", config.DefaultPreset, "configuration preset")
	pf.StringVar(&o.logFile, "log", "", "write logs to this file")
	pf.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&o.dataDir, "data", defaultDataDir, "run catalog directory")

	root.AddCommand(
		newInspectCmd(o),
		newAnalyzeCmd(o),
		newListCmd(o),
		newRepairCmd(o),
		newPresetsCmd(),
		newConfigCmd(o),
		newExportCmd(o),
	)
	return root
}

// config resolves the effective configuration: preset, then config file,
// then log flags.
func (o *options) config() (*config.Config, error) {
	cfg := config.GetPreset(o.preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", o.preset, config.ListPresets())
	}
	if o.configFile != "" {
		var err error
		if cfg, err = config.LoadOver(cfg, o.configFile); err != nil {
			return nil, err
		}
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger writes text records to the configured file. The terminal belongs
// to the frontend, so without a file records are dropped.
func logger(cfg *config.Config) (*slog.Logger, func(), error) {
	if cfg.Log.File == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	lvl, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl}))
	return log, func() { f.Close() }, nil
}

func runVisualizer(cmd *cobra.Command, o *options) error {
	if o.write != "" && o.load != "" {
		return usageError{errors.New("-w and -l cannot be used together")}
	}
	mode, path := gui.Simulate, o.write
	if o.load != "" {
		mode, path = gui.Play, o.load
	}

	cfg, err := o.config()
	if err != nil {
		return err
	}
	log, closeLog, err := logger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	// Recording runs are always catalogued; plain runs only on request.
	var catalog *storage.Store
	if o.write != "" || cmd.Flags().Changed("data") {
		catalog = storage.New(o.dataDir)
	}

	fe, err := newFrontend(cfg, o.window)
	if err != nil {
		return fmt.Errorf("frontend: %w", err)
	}
	sum, err := gui.Run(cmd.Context(), gui.Options{
		Mode:     mode,
		Path:     path,
		Config:   cfg,
		Preset:   o.preset,
		Frontend: fe,
		Log:      log,
		Catalog:  catalog,
	})
	if cerr := fe.Close(); cerr != nil {
		log.Warn("frontend close failed", "err", cerr)
	}

	if mode == gui.Simulate && path != "" && sum.Bytes > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), sum.String())
	}
	return err
}
