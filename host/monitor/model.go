// Package monitor is a terminal view of continuous sampling: running
// statistics and a sparkline per channel.
package monitor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gopherscope/host/scope"
)

// DefaultHistory is the number of samples kept per channel for the sparkline
const DefaultHistory = 60

// SamplesMsg carries one batch of raw samples in acquisition order
type SamplesMsg []uint16

// ErrMsg ends the session with an error
type ErrMsg struct{ Err error }

type tickMsg time.Time

type keyMap struct {
	Quit  key.Binding
	Pause key.Binding
	Reset key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Pause: key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset stats")),
}

// channelStats accumulates one channel
type channelStats struct {
	pin      uint8
	hasPin   bool
	count    int
	last     float64
	min, max float64
	history  []float64
}

func (c *channelStats) add(v float64, keep int) {
	if c.count == 0 {
		c.min, c.max = v, v
	}
	c.count++
	c.last = v
	c.min = math.Min(c.min, v)
	c.max = math.Max(c.max, v)
	c.history = append(c.history, v)
	if len(c.history) > keep {
		c.history = c.history[len(c.history)-keep:]
	}
}

// Model is the bubbletea model of the monitor
type Model struct {
	source   string
	cal      scope.Calibration
	channels []channelStats
	next     int
	history  int

	total   int
	started time.Time
	rate    float64 // samples/s over the last tick
	counted int

	paused   bool
	quitting bool
	err      error
	width    int

	keys    keyMap
	help    help.Model
	spinner spinner.Model
}

// New builds a monitor for samples interleaved over pins
func New(source string, pins []uint8, cal scope.Calibration) Model {
	n := max(len(pins), 1)
	chans := make([]channelStats, n)
	for i, p := range pins {
		chans[i].pin = p
		chans[i].hasPin = true
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	return Model{
		source:   source,
		cal:      cal,
		channels: chans,
		history:  DefaultHistory,
		width:    80,
		keys:     defaultKeys,
		help:     help.New(),
		spinner:  sp,
	}
}

// Err is the error that ended the session, if any
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Reset):
			m.reset()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case SamplesMsg:
		m.ingest(msg)

	case ErrMsg:
		m.err = msg.Err
		m.quitting = true
		return m, tea.Quit

	case tickMsg:
		m.rate = float64(m.counted)
		m.counted = 0
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// ingest assigns samples to channels round-robin. Paused batches still
// advance the channel cursor so interleaving stays aligned.
func (m *Model) ingest(samples []uint16) {
	n := len(m.channels)
	for _, raw := range samples {
		if !m.paused {
			m.channels[m.next].add(m.cal.Volts(raw), m.history)
		}
		m.next = (m.next + 1) % n
	}
	m.total += len(samples)
	m.counted += len(samples)
}

func (m *Model) reset() {
	for i := range m.channels {
		m.channels[i] = channelStats{pin: m.channels[i].pin, hasPin: m.channels[i].hasPin}
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Background(lipgloss.Color("235")).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

func (m Model) View() string {
	if m.quitting {
		if m.err != nil {
			return errorStyle.Render("✗ "+m.err.Error()) + "\n"
		}
		return "Stopping...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("GOPHERSCOPE - MONITOR"))
	s.WriteString("\n")
	state := m.spinner.View() + " streaming"
	if m.paused {
		state = "paused"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s | %d samples | %.0f samples/s",
		m.source, state, m.total, m.rate)))
	s.WriteString("\n\n")

	spark := max(m.width-52, 10)
	var rows strings.Builder
	for i, c := range m.channels {
		label := fmt.Sprintf("ch%d", i)
		if c.hasPin {
			label = fmt.Sprintf("P%d", c.pin)
		}
		if c.count == 0 {
			rows.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-4s", label)), headerStyle.Render("waiting")))
			continue
		}
		rows.WriteString(fmt.Sprintf("%s %s %s %s %s\n",
			labelStyle.Render(fmt.Sprintf("%-4s", label)),
			valueStyle.Render(fmt.Sprintf("%7.3fV", c.last)),
			headerStyle.Render(fmt.Sprintf("min %6.3f", c.min)),
			headerStyle.Render(fmt.Sprintf("max %6.3f", c.max)),
			valueStyle.Render(Sparkline(c.history, c.min, c.max, spark)),
		))
	}
	s.WriteString(boxStyle.Render(strings.TrimRight(rows.String(), "\n")))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))
	return s.String()
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the last width values scaled between lo and hi
func Sparkline(values []float64, lo, hi float64, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	out := make([]rune, len(values))
	for i, v := range values {
		level := 0
		if hi > lo {
			f := (v - lo) / (hi - lo)
			level = int(math.Round(f * float64(len(sparkBlocks)-1)))
			level = max(0, min(len(sparkBlocks)-1, level))
		}
		out[i] = sparkBlocks[level]
	}
	return string(out)
}
