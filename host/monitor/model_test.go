package monitor

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gopherscope/host/scope"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func TestIngestInterleaves(t *testing.T) {
	cal := scope.Calibration{FullScale: 1000, ReferenceVoltage: 1, Gain: 1}
	m := New("test", []uint8{3, 28}, cal)

	// Batches split rounds unevenly
	m, _ = update(t, m, SamplesMsg{100, 900, 300})
	m, _ = update(t, m, SamplesMsg{700})

	tests := []struct {
		ch           int
		last, lo, hi float64
		count        int
	}{
		{0, 0.3, 0.1, 0.3, 2},
		{1, 0.7, 0.7, 0.9, 2},
	}
	for _, tt := range tests {
		c := m.channels[tt.ch]
		if c.count != tt.count || c.last != tt.last || c.min != tt.lo || c.max != tt.hi {
			t.Errorf("channel %d: got last=%v min=%v max=%v n=%d", tt.ch, c.last, c.min, c.max, c.count)
		}
	}
	if m.total != 4 {
		t.Errorf("expected 4 samples counted, got %d", m.total)
	}
}

func TestPauseKeepsAlignment(t *testing.T) {
	m := New("test", []uint8{2, 4}, scope.DefaultCalibration())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m, _ = update(t, m, SamplesMsg{1, 2, 3})
	if m.channels[0].count != 0 || m.channels[1].count != 0 {
		t.Fatal("samples recorded while paused")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m, _ = update(t, m, SamplesMsg{4096})
	// Three paused samples leave the cursor on channel 1
	if m.channels[1].count != 1 || m.channels[0].count != 0 {
		t.Errorf("interleaving lost across pause: %+v", m.channels)
	}
}

func TestResetClearsStats(t *testing.T) {
	m := New("test", []uint8{5}, scope.DefaultCalibration())
	m, _ = update(t, m, SamplesMsg{1, 2, 3})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if c := m.channels[0]; c.count != 0 || len(c.history) != 0 || c.pin != 5 {
		t.Errorf("reset left %+v", c)
	}
}

func TestQuitAndError(t *testing.T) {
	m := New("test", nil, scope.DefaultCalibration())
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}

	boom := errors.New("link down")
	m = New("test", nil, scope.DefaultCalibration())
	m, cmd = update(t, m, ErrMsg{Err: boom})
	if cmd == nil || !errors.Is(m.Err(), boom) {
		t.Fatalf("error not recorded: %v", m.Err())
	}
	if !strings.Contains(m.View(), "link down") {
		t.Error("error not shown")
	}
}

func TestView(t *testing.T) {
	m := New("/dev/ttyACM0", []uint8{2, 31}, scope.DefaultCalibration())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, SamplesMsg{0, 4096})

	v := m.View()
	for _, want := range []string{"GOPHERSCOPE", "/dev/ttyACM0", "P2", "P31", "3.300V", "quit"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}

	empty := New("sim", []uint8{7}, scope.DefaultCalibration()).View()
	if !strings.Contains(empty, "waiting") {
		t.Error("empty channel not marked as waiting")
	}
}

func TestHistoryBounded(t *testing.T) {
	m := New("test", nil, scope.DefaultCalibration())
	for i := 0; i < 3*DefaultHistory; i++ {
		m, _ = update(t, m, SamplesMsg{uint16(i)})
	}
	if n := len(m.channels[0].history); n != DefaultHistory {
		t.Errorf("history grew to %d", n)
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		lo, hi float64
		width  int
		want   string
	}{
		{"ramp", []float64{0, 0.5, 1}, 0, 1, 3, "▁▅█"},
		{"flat", []float64{2, 2}, 2, 2, 2, "▁▁"},
		{"clipped", []float64{-1, 5}, 0, 1, 2, "▁█"},
		{"truncated", []float64{0, 0, 1, 1}, 0, 1, 2, "██"},
		{"empty", nil, 0, 1, 2, ""},
		{"zero width", []float64{1}, 0, 1, 0, ""},
	}
	for _, tt := range tests {
		if got := Sparkline(tt.values, tt.lo, tt.hi, tt.width); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}
