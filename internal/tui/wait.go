package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrInterrupted is returned when the user hits ctrl+c while waiting.
var ErrInterrupted = errors.New("interrupted")

var (
	primaryColor = lipgloss.Color("#00D9FF")
	mutedColor   = lipgloss.Color("#6B7280")

	waitStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	spinnerStyle = lipgloss.NewStyle().Foreground(primaryColor)
)

type resultMsg struct {
	response string
	err      error
}

// WaitModel shows a spinner until its call returns.
type WaitModel struct {
	spinner spinner.Model
	label   string
	start   time.Time
	now     time.Time
	call    func() (string, error)
	cancel  context.CancelFunc

	done     bool
	response string
	err      error
}

func NewWaitModel(label string, call func() (string, error), cancel context.CancelFunc) WaitModel {
	s := spinner.New()
	s.Spinner = spinner.Line
	s.Style = spinnerStyle

	now := time.Now()
	return WaitModel{
		spinner: s,
		label:   label,
		start:   now,
		now:     now,
		call:    call,
		cancel:  cancel,
	}
}

func (m WaitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run())
}

func (m WaitModel) run() tea.Cmd {
	call := m.call
	return func() tea.Msg {
		response, err := call()
		return resultMsg{response: response, err: err}
	}
}

func (m WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.cancel != nil {
				m.cancel()
			}
			m.done = true
			m.err = ErrInterrupted
			return m, tea.Quit
		}

	case resultMsg:
		m.done = true
		m.response = msg.response
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.now = time.Now()
		return m, cmd
	}

	return m, nil
}

func (m WaitModel) View() string {
	if m.done {
		return ""
	}
	elapsed := m.now.Sub(m.start).Seconds()
	return spinnerStyle.Render(m.spinner.View()) + " " +
		waitStyle.Render(fmt.Sprintf("Waiting for %s... (%.1fs)", m.label, elapsed)) + "\n"
}

// Result returns what the call produced.
func (m WaitModel) Result() (string, error) {
	return m.response, m.err
}

// Wait runs fn under a spinner written to out. ctrl+c cancels fn's context.
func Wait(ctx context.Context, label string, out io.Writer, fn func(context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewWaitModel(label, func() (string, error) { return fn(ctx) }, cancel)
	p := tea.NewProgram(m, tea.WithOutput(out), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("spinner failed: %w", err)
	}

	wm, ok := final.(WaitModel)
	if !ok {
		return "", fmt.Errorf("unexpected model %T", final)
	}
	return wm.Result()
}
