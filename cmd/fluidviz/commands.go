package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluidviz/internal/analysis"
	"github.com/san-kum/fluidviz/internal/config"
	"github.com/san-kum/fluidviz/internal/export"
	"github.com/san-kum/fluidviz/internal/storage"
	"github.com/san-kum/fluidviz/internal/store"
	"github.com/san-kum/fluidviz/internal/tui"
	"github.com/san-kum/fluidviz/internal/viz"
)

var (
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	label = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func field(w io.Writer, name string, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", label.Render(fmt.Sprintf("%-12s", name)), fmt.Sprintf(format, args...))
}

func newInspectCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "browse a recording frame by frame",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}
			return tui.Run(args[0], tui.Options{
				Interval: cfg.Timers.Playback,
				Loop:     cfg.View.Loop,
				Palette:  viz.GetPalette(cfg.View.Palette),
			})
		},
	}
}

func newAnalyzeCmd(o *options) *cobra.Command {
	var dt float64
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "mass history and power spectrum of a recording",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !cmd.Flags().Changed("dt") {
				dt = recordingDt(o, path)
			}
			return analyze(cmd.OutOrStdout(), path, dt)
		},
	}
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "simulated time between frames (default: from the sidecar)")
	return cmd
}

// recordingDt prefers the time step stored next to the recording.
func recordingDt(o *options, path string) float64 {
	if meta, err := storage.ReadSidecar(path); err == nil && meta.Dt > 0 {
		return meta.Dt
	}
	if cfg, err := o.config(); err == nil {
		return cfg.Sim.Dt
	}
	return config.DefaultDt
}

func analyze(w io.Writer, path string, dt float64) error {
	r, err := store.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	rep, err := analysis.Scan(r)
	if err != nil && rep.Frames() == 0 {
		return err
	}
	h := rep.Header

	fmt.Fprintln(w, title.Render("analysis: "+path))
	field(w, "grid", "%dx%dx%d", h.Width, h.Height, h.Width)
	field(w, "frames", "%d (%.2f s simulated at dt %g)", h.Frames, float64(h.Frames)*dt, dt)
	if err != nil {
		field(w, "damaged", "%v, showing %d frames", err, rep.Frames())
	}

	mass := analysis.Describe(rep.Mass)
	field(w, "mass", "min %.3f  max %.3f  mean %.3f", mass.Min, mass.Max, mass.Mean)
	peak := analysis.Describe(rep.Peak)
	field(w, "peak", "max %.3f", peak.Max)
	if n := rep.Frames(); n > 0 {
		field(w, "filled", "%d of %d cells in the last frame", rep.Filled[n-1], h.FrameLen())
	}

	if rep.Frames() < 2 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, asciigraph.Plot(rep.Mass,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("mass per frame"),
	))

	p, err := analysis.Dominant(rep.Mass, dt)
	if errors.Is(err, analysis.ErrShortSeries) {
		return nil
	}
	ps := analysis.PowerSpectrum(rep.Mass)
	if len(ps) > 4 {
		ps = ps[1 : len(ps)/2+1]
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, asciigraph.Plot(ps,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (mass)"),
	))
	fmt.Fprintln(w)
	if p.Bin == 0 {
		field(w, "dominant", "none (constant mass)")
		return nil
	}
	field(w, "dominant", "%.4f per unit time (bin %d)", p.Frequency, p.Bin)
	field(w, "period", "%.3f", 1/p.Frequency)
	return nil
}

func newListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list [run-id]",
		Short: "list catalogued runs, or show the stats of one",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(o.dataDir)
			if len(args) == 1 {
				return showRun(cmd.OutOrStdout(), st, args[0])
			}
			return listRuns(cmd.OutOrStdout(), st)
		},
	}
}

func listRuns(out io.Writer, st *storage.Store) error {
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tPRESET\tTIME\tGRID\tSIMFRAMES\tRECORDED\tFILE")
	for _, run := range runs {
		file := run.Recording
		if file == "" {
			file = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			run.ID,
			run.Mode,
			run.Preset,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Grid,
			run.SimFrames,
			run.RecordedFrames,
			file,
		)
	}
	return w.Flush()
}

func showRun(w io.Writer, st *storage.Store, id string) error {
	meta, err := st.Load(id)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(id)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, title.Render("run "+meta.ID))
	field(w, "mode", "%s (preset %s)", meta.Mode, meta.Preset)
	field(w, "grid", "%d, dt %g, seed %d", meta.Grid, meta.Dt, meta.Seed)
	field(w, "simframes", "%d (%.2f s simulated)", meta.SimFrames, meta.SimTime)
	field(w, "frames", "%d rendered", meta.Frames)
	if meta.Recording != "" {
		field(w, "recording", "%s, %d frames, %d kiB", meta.Recording, meta.RecordedFrames, meta.Bytes>>10)
	}
	if meta.Error != "" {
		field(w, "error", "%s", meta.Error)
	}
	if len(samples) < 2 {
		return nil
	}

	fps := make([]float64, len(samples))
	sfps := make([]float64, len(samples))
	for i, s := range samples {
		fps[i] = float64(s.FPS)
		sfps[i] = float64(s.SFPS)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, asciigraph.PlotMany([][]float64{fps, sfps},
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Default, asciigraph.Green),
		asciigraph.Caption("FPS and sFPS per second"),
	))
	return nil
}

func newRepairCmd(o *options) *cobra.Command {
	var grid int
	cmd := &cobra.Command{
		Use:   "repair <file>",
		Short: "rewrite the header of a recording that was never finalized",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("grid") {
				if cfg, err := o.config(); err == nil {
					grid = cfg.Grid
				}
			}
			h, err := store.Repair(args[0], grid)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%dx%d, %d frames\n", args[0], h.Width, h.Height, h.Width, h.Frames)
			return nil
		},
	}
	cmd.Flags().IntVar(&grid, "grid", config.DefaultGrid, "interior grid size the recording was made with")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				mark := " "
				if name == config.DefaultPreset {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %-8s grid %-3s buoyancy %-4s vorticity %-4s palette %s\n",
					mark, name,
					strconv.Itoa(cfg.Grid),
					strconv.FormatFloat(cfg.Sim.Buoyancy, 'g', -1, 64),
					strconv.FormatFloat(cfg.Sim.Vorticity, 'g', -1, 64),
					cfg.View.Palette)
			}
		},
	}
}

func newConfigCmd(o *options) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}
			if save != "" {
				return config.Save(save, cfg)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "write the configuration to this file instead")
	return cmd
}

func newExportCmd(o *options) *cobra.Command {
	var (
		frame, slice, size int
		format, out        string
	)
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "write one recorded frame as an SVG slice or a rendered PNG",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}
			r, err := store.Open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.Seek(frame); err != nil {
				return err
			}
			f, err := r.Next()
			if err != nil {
				return err
			}
			g := r.Header().Grid()
			pal := viz.GetPalette(cfg.View.Palette)

			w := cmd.OutOrStdout()
			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}

			switch format {
			case "svg":
				if !cmd.Flags().Changed("slice") {
					slice = (g.N + 1) / 2
				}
				svg, err := export.SliceToSVG(g, f, slice, 8, pal)
				if err != nil {
					return err
				}
				_, err = io.WriteString(w, svg)
				return err
			case "png":
				return export.VolumeToPNG(w, g, f, size, pal)
			default:
				return usageError{fmt.Errorf("unknown format %q (svg, png)", format)}
			}
		},
	}
	cmd.Flags().IntVar(&frame, "frame", 0, "frame index")
	cmd.Flags().IntVar(&slice, "slice", 0, "z slice for svg (default: middle)")
	cmd.Flags().IntVar(&size, "size", config.DefaultResolution*2, "png size in pixels")
	cmd.Flags().StringVar(&format, "format", "svg", "svg or png")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: stdout)")
	return cmd
}
