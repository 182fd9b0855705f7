// Package tui is the bubbletea front end for a heads-up table.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/display"
	"github.com/lox/headsup/internal/evaluator"
	"github.com/lox/headsup/internal/game"
	"github.com/lox/headsup/internal/session"
)

const (
	actionTimeout  = 10 * time.Second
	equitySamples  = 2000
	updateBuffer   = 64
	minLogHeight   = 3
	chromeHeight   = 4
	logBorderWidth = 2
)

type keyMap struct {
	Fold   key.Binding
	Call   key.Binding
	Raise  key.Binding
	Next   key.Binding
	Rebuy  key.Binding
	Equity key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Fold, k.Call, k.Raise, k.Next, k.Rebuy, k.Equity, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Fold:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fold")),
	Call:   key.NewBinding(key.WithKeys("c", "k"), key.WithHelp("c", "check/call")),
	Raise:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "raise")),
	Next:   key.NewBinding(key.WithKeys("enter", "n"), key.WithHelp("enter", "next hand")),
	Rebuy:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "rebuy")),
	Equity: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "equity hint")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

type updateMsg game.Update

type resultMsg struct {
	what string
	err  error
}

type equityMsg struct {
	hand  int
	board int
	eq    evaluator.Equity
	err   error
}

// Model renders a Table and turns key presses into actions.
type Model struct {
	table    Table
	renderer *display.Renderer
	logger   *log.Logger

	updates     chan game.Update
	done        chan struct{}
	unsubscribe func()

	view    game.Snapshot
	hasView bool
	lines   []string
	warning string
	errText string

	showEquity bool
	equity     evaluator.Equity
	equityKey  [2]int
	seed       int64

	log      viewport.Model
	help     help.Model
	width    int
	height   int
	quitting bool
}

// New subscribes to t. Call Close once the program has exited.
func New(t Table, renderer *display.Renderer, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.Default()
	}
	m := &Model{
		table:    t,
		renderer: renderer,
		logger:   logger.WithPrefix("tui"),
		updates:  make(chan game.Update, updateBuffer),
		done:     make(chan struct{}),
		lines:    append([]string(nil), t.History()...),
		log:      viewport.New(80, 10),
		help:     help.New(),
		seed:     time.Now().UnixNano(),
	}
	m.unsubscribe = t.Subscribe(game.ObserverFunc(m.enqueue))
	if v, err := t.View(); err == nil {
		m.view, m.hasView = v, true
	}
	m.refreshLog()
	return m
}

func (m *Model) enqueue(u game.Update) {
	select {
	case m.updates <- u:
	case <-m.done:
	}
}

// Close stops listening to the table.
func (m *Model) Close() {
	select {
	case <-m.done:
	default:
		close(m.done)
		m.unsubscribe()
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-m.updates:
			return updateMsg(u)
		case <-m.done:
			return nil
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()

	case updateMsg:
		m.apply(game.Update(msg))
		cmds = append(cmds, m.waitForUpdate(), m.equityCmd())

	case resultMsg:
		m.errText = ""
		if msg.err != nil {
			m.errText = describe(msg.err)
			m.logger.Debug("Action rejected", "action", msg.what, "error", msg.err)
		}

	case equityMsg:
		if msg.err == nil && m.equityKey == [2]int{msg.hand, msg.board} {
			m.equity = msg.eq
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Fold):
			cmds = append(cmds, m.act(game.Fold))
		case key.Matches(msg, keys.Call):
			cmds = append(cmds, m.act(game.Call))
		case key.Matches(msg, keys.Raise):
			cmds = append(cmds, m.act(game.Raise))
		case key.Matches(msg, keys.Next):
			cmds = append(cmds, m.run("next hand", m.table.Next))
		case key.Matches(msg, keys.Rebuy):
			if r, ok := m.table.(Rebuyer); ok {
				cmds = append(cmds, m.run("rebuy", func(context.Context) error { return r.Rebuy() }))
			}
		case key.Matches(msg, keys.Equity):
			m.showEquity = !m.showEquity
			m.equityKey = [2]int{}
			cmds = append(cmds, m.equityCmd())
		default:
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) apply(u game.Update) {
	m.view, m.hasView = u.Snapshot, true
	m.warning = u.Warning
	if len(u.Events) > 0 {
		m.lines = append(m.lines, u.Events...)
		m.refreshLog()
	}
}

func (m *Model) act(a game.Action) tea.Cmd {
	return m.run(a.String(), func(ctx context.Context) error { return m.table.Act(ctx, a) })
}

func (m *Model) run(what string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return resultMsg{what: what, err: fn(ctx)}
	}
}

// equityCmd estimates the viewer's equity once per street while the hint
// is on.
func (m *Model) equityCmd() tea.Cmd {
	if !m.showEquity || !m.hasView || !m.view.Stage.IsBetting() {
		return nil
	}
	seat := m.table.Seat()
	if seat < 0 || seat >= len(m.view.Players) {
		return nil
	}
	hole := m.view.Players[seat].Hole
	board := append([]deck.Card(nil), m.view.Community...)
	k := [2]int{m.view.HandNumber, len(board)}
	if len(hole) != 2 || k == m.equityKey {
		return nil
	}
	m.equityKey = k
	m.equity = evaluator.Equity{}
	hole = append([]deck.Card(nil), hole...)
	seed := m.seed + int64(k[0])*7 + int64(k[1])
	return func() tea.Msg {
		eq, err := evaluator.EstimateEquity(context.Background(), hole, board, equitySamples, seed)
		return equityMsg{hand: k[0], board: k[1], eq: eq, err: err}
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "It is not your turn."
	case errors.Is(err, game.ErrHandOver):
		return "The hand is over. Press enter for the next one."
	case errors.Is(err, session.ErrGameOver):
		return "The match is over. Press b to rebuy."
	case errors.Is(err, session.ErrHandInProgress):
		return "Finish the current hand first."
	default:
		return err.Error()
	}
}

func (m *Model) refreshLog() {
	m.log.SetContent(strings.Join(m.lines, "\n"))
	m.log.GotoBottom()
}

func (m *Model) resize() {
	top := lipgloss.Height(m.header())
	h := m.height - top - chromeHeight
	if h < minLogHeight {
		h = minLogHeight
	}
	w := m.width - logBorderWidth
	if w < 1 {
		w = 1
	}
	m.log.Width, m.log.Height = w, h
	m.help.Width = m.width
	m.refreshLog()
}

func (m *Model) header() string {
	if !m.hasView {
		return m.renderer.Styles().Info.Render("Waiting for the table...")
	}
	seat := m.table.Seat()
	parts := []string{m.renderer.Table(m.view, seat), "", m.renderer.Actions(m.view, seat)}
	if m.showEquity {
		if eq := m.renderer.Equity(m.equity); eq != "" {
			parts = append(parts, eq)
		}
	}
	if w := m.renderer.Warning(m.warning); w != "" {
		parts = append(parts, w)
	}
	if m.errText != "" {
		parts = append(parts, m.renderer.Styles().Error.Render(m.errText))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262"))
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		logStyle.Render(m.log.View()),
		m.help.View(keys),
	)
}

// Lines returns the event log shown so far.
func (m *Model) Lines() []string {
	return append([]string(nil), m.lines...)
}

// Run starts the program on the terminal and blocks until the player quits.
func Run(t Table, renderer *display.Renderer, logger *log.Logger, opts ...tea.ProgramOption) error {
	m := New(t, renderer, logger)
	defer m.Close()
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
