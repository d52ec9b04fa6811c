// Package tui is a terminal browser for recordings.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fluidviz/internal/analysis"
	"github.com/san-kum/fluidviz/internal/clock"
	"github.com/san-kum/fluidviz/internal/dynamo"
	"github.com/san-kum/fluidviz/internal/store"
	"github.com/san-kum/fluidviz/internal/viz"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type Options struct {
	Name     string
	Interval time.Duration
	Loop     bool
	Palette  *viz.Palette
}

type model struct {
	r       *store.Reader
	report  *analysis.Report
	grid    dynamo.Grid
	field   dynamo.Field
	opts    Options
	palette *viz.Palette

	frame   int
	slice   int
	playing bool
	err     error

	width  int
	height int
}

type tickMsg time.Time

func (m model) tick() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// newModel scans r once for the per-frame series and shows the first frame.
func newModel(r *store.Reader, opts Options) (model, error) {
	rep, err := analysis.Scan(r)
	if err != nil {
		return model{}, err
	}
	if rep.Frames() == 0 {
		return model{}, store.ErrEndOfData
	}
	if opts.Interval <= 0 {
		opts.Interval = clock.PlaybackInterval
	}
	pal := opts.Palette
	if pal == nil {
		pal = viz.PaletteSmoke
	}
	g := r.Header().Grid()
	m := model{
		r:       r,
		report:  rep,
		grid:    g,
		field:   g.NewField(),
		opts:    opts,
		palette: pal,
		slice:   (g.N + 1) / 2,
		width:   80,
		height:  24,
	}
	m.load(0)
	return m, nil
}

func (m *model) load(i int) {
	n := m.report.Frames()
	i = max(0, min(n-1, i))
	if err := m.r.Seek(i); err != nil {
		m.err = err
		return
	}
	f, err := m.r.Next()
	if err != nil {
		m.err = err
		return
	}
	copy(m.field, f)
	m.frame = i
	m.err = nil
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.playing {
			return m, nil
		}
		next := m.frame + 1
		if next >= m.report.Frames() {
			if !m.opts.Loop {
				m.playing = false
				return m, nil
			}
			next = 0
		}
		m.load(next)
		return m, m.tick()
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.load(m.frame - 1)
	case "right", "l":
		m.load(m.frame + 1)
	case "pgup":
		m.load(m.frame - 10)
	case "pgdown":
		m.load(m.frame + 10)
	case "home", "g":
		m.load(0)
	case "end", "G":
		m.load(m.report.Frames() - 1)
	case "up", "k":
		m.slice = min(m.grid.N, m.slice+1)
	case "down", "j":
		m.slice = max(1, m.slice-1)
	case " ":
		m.playing = !m.playing
		if m.playing {
			return m, m.tick()
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	status := dim.Render("stopped")
	if m.playing {
		status = green.Render("playing")
	}
	h := m.r.Header()
	b.WriteString(fmt.Sprintf("\n   %s  %s  %s\n",
		cyan.Render(m.opts.Name),
		dim.Render(fmt.Sprintf("%dx%dx%d, %d frames", h.Width, h.Height, h.Width, h.Frames)),
		status))
	b.WriteString(fmt.Sprintf("   %s %s  %s %s  %s %s\n\n",
		dim.Render("frame"), white.Render(fmt.Sprintf("%d/%d", m.frame+1, m.report.Frames())),
		dim.Render("slice"), white.Render(fmt.Sprintf("z=%d", m.slice)),
		dim.Render("mass"), yellow.Render(fmt.Sprintf("%.3f", m.report.Mass[m.frame]))))

	b.WriteString(m.heatmap())

	if m.report.Frames() > 1 {
		graph := asciigraph.Plot(m.report.Mass,
			asciigraph.Height(6),
			asciigraph.Width(max(20, min(m.width-14, 72))),
			asciigraph.Offset(3),
			asciigraph.Caption("mass per frame"),
		)
		b.WriteString("\n" + dimmer.Render(graph) + "\n")
	}

	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + dim.Render("   ←/→ frame  ↑/↓ slice  space play  g/G first/last  q quit") + "\n")
	return b.String()
}

// heatmap draws the z = slice plane of the current frame, two grid rows per
// terminal line.
func (m model) heatmap() string {
	side := m.grid.Side()
	peak := float64(m.field.Max())
	if peak <= 0 {
		peak = 1
	}
	value := func(i, j int) float64 {
		return float64(m.field[m.grid.Index(i, j, m.slice)]) / peak
	}

	var b strings.Builder
	for j := side - 1; j >= 0; j -= 2 {
		b.WriteString("   ")
		for i := 0; i < side; i++ {
			top, bottom := value(i, j), 0.0
			if j > 0 {
				bottom = value(i, j-1)
			}
			style := lipgloss.NewStyle().
				Foreground(m.palette.Color(top)).
				Background(m.palette.Color(bottom))
			b.WriteString(style.Render("▀"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Run browses the recording at path until the user quits.
func Run(path string, opts Options) error {
	r, err := store.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	if opts.Name == "" {
		opts.Name = path
	}
	m, err := newModel(r, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
