package monitor

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"gopherscope/host/scope"
	"gopherscope/protocol"
)

// Run streams from c into the monitor until the user quits or the stream
// fails. The device is stopped before Run returns.
func Run(ctx context.Context, c *scope.Client, kind protocol.SampleKind, m Model, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)

	streamDone := make(chan error, 1)
	go func() {
		err := c.Stream(ctx, kind, func(s []uint16) error {
			p.Send(SamplesMsg(append([]uint16(nil), s...)))
			return nil
		})
		if err != nil {
			p.Send(ErrMsg{Err: err})
		}
		streamDone <- err
	}()

	final, err := p.Run()
	cancel()
	streamErr := <-streamDone

	if errors.Is(err, tea.ErrProgramKilled) {
		err = nil
	}
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return streamErr
}
