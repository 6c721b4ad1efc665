// Package tui is a bubbletea terminal dashboard driving a scripted
// multi-tick run of the demo scenario (internal/scenario) and rendering
// the live fiber tree alongside the compiled sections/tools.
//
// It follows the usual Elm-architecture shape (Model/Update/View, a
// bubbles/spinner for in-flight work) at a much smaller scale: a fiber tree
// and compiled sections instead of a multi-step wizard form.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rlindgren/aidk/internal/scenario"
	"github.com/rlindgren/aidk/pkg/aidk"
	"github.com/rlindgren/aidk/pkg/renderer"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	borderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// tickMsg advances the scenario by one tick; scheduled on tickInterval.
type tickMsg time.Time

// Model is the TUI's Elm-architecture state.
type Model struct {
	width, height int

	compiler *aidk.Compiler
	element  aidk.Element
	tick     int

	compiled *aidk.CompiledStructure
	result   *aidk.StabilizationResult
	err      error

	spinner  spinner.Model
	paused   bool
	quitting bool

	tickInterval time.Duration
}

// New creates a Model bound to a fresh compiler and COM, driving
// scenario.Build(cfg) once per tick.
func New(cfg scenario.Config, tickInterval time.Duration) Model {
	aidkCfg := aidk.DefaultConfig()
	aidkCfg.DefaultRenderer = renderer.Default
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		compiler:     aidk.NewCompiler(scenario.NewCOM(), aidkCfg),
		element:      scenario.Build(cfg),
		spinner:      sp,
		tickInterval: tickInterval,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, scheduleTick(m.tickInterval))
}

func scheduleTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case " ", "n":
			return m.runTick()
		case "p":
			m.paused = !m.paused
			return m, nil
		}
		return m, nil

	case tickMsg:
		if m.paused {
			return m, scheduleTick(m.tickInterval)
		}
		updated, cmd := m.runTick()
		return updated, tea.Batch(cmd, scheduleTick(m.tickInterval))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) runTick() (Model, tea.Cmd) {
	m.compiler.NotifyTickStart(m.tick)
	result, err := m.compiler.CompileUntilStable(m.element, m.tick, 0)
	if err == nil {
		err = m.compiler.NotifyTickEnd(m.tick)
	} else {
		m.compiler.NotifyTickEnd(m.tick)
	}
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.result = result
	m.compiled = result.Compiled
	m.tick++
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return "aidkc tree: bye\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("aidkc tree — tick %d", m.tick)))
	b.WriteString("  ")
	b.WriteString(m.spinner.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("space/n: tick once   p: pause/resume   q: quit"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	left := borderStyle.Render(m.renderFiberTree())
	right := borderStyle.Render(m.renderCompiled())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")
	if m.result != nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf(
			"iterations=%d forcedStable=%v reasons=%v",
			m.result.Iterations, m.result.ForcedStable, m.result.RecompileReasons)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFiberTree() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("fiber tree"))
	b.WriteString("\n")
	root := m.compiler.Root()
	if root == nil {
		b.WriteString(dimStyle.Render("(not yet compiled)"))
		return b.String()
	}
	var walk func(f *aidk.Fiber, depth int)
	walk = func(f *aidk.Fiber, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(&b, "%s [%s]\n", f.DebugName, f.Kind)
		f.ForEachChild(func(c *aidk.Fiber) { walk(c, depth+1) })
	}
	walk(root, 0)
	return b.String()
}

func (m Model) renderCompiled() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("compiled structure"))
	b.WriteString("\n")
	if m.compiled == nil {
		b.WriteString(dimStyle.Render("(not yet compiled)"))
		return b.String()
	}
	for _, s := range m.compiled.SectionsInOrder() {
		b.WriteString(sectionStyle.Render("§ " + s.ID))
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %v\n", s.Content)
	}
	for _, t := range m.compiled.Tools {
		fmt.Fprintf(&b, "tool: %s\n", t.Name)
	}
	for _, e := range m.compiled.TimelineEntries {
		if e.Kind == "message" && e.Message != nil {
			fmt.Fprintf(&b, "%s: %s\n", e.Message.Role, renderMessage(e.Message))
		}
	}
	return b.String()
}

func renderMessage(msg *aidk.MessageEntry) string {
	var parts []string
	for _, block := range msg.Content {
		parts = append(parts, block.Text)
	}
	return strings.Join(parts, " ")
}
