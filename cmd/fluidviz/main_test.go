package main

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluidviz/internal/config"
	"github.com/san-kum/fluidviz/internal/dynamo"
	"github.com/san-kum/fluidviz/internal/gui"
	"github.com/san-kum/fluidviz/internal/storage"
	"github.com/san-kum/fluidviz/internal/store"
)

// headless never draws. With quit set it asks to stop at the first poll.
type headless struct {
	quit     bool
	presents int
}

func (h *headless) Size() (int, int) { return 32, 32 }

func (h *headless) Poll() (gui.Event, bool) {
	if h.quit {
		return gui.Event{Kind: gui.EventKeyUp, Key: gui.KeyEscape}, true
	}
	return gui.Event{}, false
}

func (h *headless) Pending() <-chan struct{} { return nil }

func (h *headless) Present(img *image.RGBA, overlay string) error {
	h.presents++
	return nil
}

func (h *headless) Close() error { return nil }

func useFrontend(t *testing.T, fe gui.Frontend) {
	t.Helper()
	prev := newFrontend
	newFrontend = func(*config.Config, bool) (gui.Frontend, error) { return fe, nil }
	t.Cleanup(func() { newFrontend = prev })
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// writeConfig stores a small, short simulation for end-to-end runs.
func writeConfig(t *testing.T, dir string, steps uint64) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Grid = 8
	cfg.Sim.Iterations = 4
	cfg.Sim.MaxSteps = steps
	cfg.Sim.Source = config.SourceConfig{X: 2, Y: 2, Z: 2, Size: 3, Velocity: -3}
	cfg.View.Resolution = 16
	path := filepath.Join(dir, "small.yaml")
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMisuseShowsUsage(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.bin"), filepath.Join(dir, "b.bin")
	useFrontend(t, &headless{quit: true})

	tests := []struct {
		name string
		args []string
	}{
		{"positional", []string{"extra"}},
		{"unknown flag", []string{"-x"}},
		{"both modes", []string{"-w", a, "-l", b}},
		{"missing value", []string{"-w"}},
		{"inspect without file", []string{"inspect"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := execute(t, tt.args...)
			if code != 1 {
				t.Errorf("exit code %d, want 1", code)
			}
			if !strings.Contains(stderr, "Usage:") {
				t.Errorf("stderr has no usage:\n%s", stderr)
			}
		})
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("misuse created %d files", len(entries))
	}
}

func TestPlayMissingFile(t *testing.T) {
	fe := &headless{}
	useFrontend(t, fe)

	code, _, stderr := execute(t, "-l", filepath.Join(t.TempDir(), "missing.bin"))
	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.HasPrefix(stderr, "Error: ") {
		t.Errorf("stderr = %q", stderr)
	}
	if strings.Contains(stderr, "Usage:") {
		t.Error("a playback failure is not a usage error")
	}
	if fe.presents != 0 {
		t.Errorf("presented %d frames", fe.presents)
	}
}

func TestPlayCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.bin")
	// 100000x100000 sides, one frame, no data.
	hdr := []byte{0xa0, 0x86, 0x01, 0x00, 0xa0, 0x86, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00}
	if err := os.WriteFile(path, hdr, 0o644); err != nil {
		t.Fatal(err)
	}
	fe := &headless{}
	useFrontend(t, fe)

	code, _, stderr := execute(t, "-l", path)
	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr, "malformed header") {
		t.Errorf("stderr = %q", stderr)
	}
	if fe.presents != 0 {
		t.Errorf("presented %d frames", fe.presents)
	}
}

func TestSimulateWithoutArgsCreatesNothing(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, t.TempDir(), 0)
	t.Chdir(dir)
	useFrontend(t, &headless{quit: true})

	code, stdout, stderr := execute(t, "--config", cfgPath)
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("unexpected output %q", stdout)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("plain simulation created %d files", len(entries))
	}
}

func TestRecordAndPlay(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, 3)
	out := filepath.Join(dir, "out.bin")
	data := filepath.Join(dir, "runs")
	useFrontend(t, &headless{})

	code, stdout, stderr := execute(t, "--config", cfgPath, "--data", data, "--preset", "plume", "-w", out)
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "3 frames written to file "+out) {
		t.Errorf("stdout = %q", stdout)
	}

	r, err := store.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	h := r.Header()
	r.Close()
	if h.Frames != 3 || h.Width != 10 || h.Height != 10 {
		t.Errorf("header %+v", h)
	}

	runs, err := storage.New(data).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Preset != "plume" || runs[0].RecordedFrames != 3 {
		t.Errorf("catalog %+v", runs)
	}

	code, stdout, _ = execute(t, "--data", data, "list")
	if code != 0 || !strings.Contains(stdout, runs[0].ID) {
		t.Errorf("list exit %d:\n%s", code, stdout)
	}

	code, stdout, stderr = execute(t, "analyze", out)
	if code != 0 {
		t.Fatalf("analyze exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "mass per frame") || !strings.Contains(stdout, "10x10x10") {
		t.Errorf("analyze output:\n%s", stdout)
	}

	svg := filepath.Join(dir, "slice.svg")
	if code, _, stderr := execute(t, "export", "--frame", "2", "-o", svg, out); code != 0 {
		t.Fatalf("export exit %d: %s", code, stderr)
	}
	if b, err := os.ReadFile(svg); err != nil || !strings.HasPrefix(string(b), "<?xml") {
		t.Errorf("export wrote %q, %v", b, err)
	}
	if code, _, _ := execute(t, "export", "--frame", "3", out); code != 1 {
		t.Errorf("export past the end exit %d, want 1", code)
	}

	useFrontend(t, &headless{quit: true})
	if code, _, stderr := execute(t, "-l", out); code != 0 {
		t.Errorf("play exit %d: %s", code, stderr)
	}
}

func TestRepairCommand(t *testing.T) {
	g := dynamo.NewGrid(3)
	path := filepath.Join(t.TempDir(), "broken.bin")
	w, err := store.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := w.WriteFrame(g.NewField()); err != nil {
			t.Fatal(err)
		}
	}
	w.Close()

	code, stdout, stderr := execute(t, "repair", "--grid", "3", path)
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "5x5x5, 2 frames") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestPresetsCommand(t *testing.T) {
	code, stdout, _ := execute(t, "presets")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	for _, name := range config.ListPresets() {
		if !strings.Contains(stdout, name) {
			t.Errorf("preset %s not listed", name)
		}
	}
	if !strings.Contains(stdout, "* "+config.DefaultPreset) {
		t.Error("default preset not marked")
	}
}

func TestConfigCommand(t *testing.T) {
	code, stdout, stderr := execute(t, "--preset", "small", "--log-level", "debug", "config")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr)
	}
	var cfg config.Config
	if err := yaml.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Grid != 24 || cfg.Log.Level != "debug" {
		t.Errorf("grid %d, level %q", cfg.Grid, cfg.Log.Level)
	}

	if code, _, _ := execute(t, "--preset", "nope", "config"); code != 1 {
		t.Errorf("unknown preset exit %d, want 1", code)
	}
}
