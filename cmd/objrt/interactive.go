package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	paramStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectType modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	s        *session
	result   string
	types    []typeInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type loadedMsg struct {
	err   error
	types []typeInfo
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(s *session) *interactiveModel {
	return &interactiveModel{s: s, state: stateSelectType}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadTypes
}

func (m *interactiveModel) loadTypes() tea.Msg {
	types, err := m.s.list()
	return loadedMsg{err: err, types: types}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectType && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectType && m.selected < len(m.types)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectType:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callType
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callType

			case stateShowResult:
				m.state = stateSelectType
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectType
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectType
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.types = msg.types

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	ti := m.types[m.selected]
	m.inputs = make([]textinput.Model, len(ti.params))
	for i, p := range ti.params {
		in := textinput.New()
		in.Placeholder = witTypeStr(p.witType) + " (empty to omit)"
		in.Prompt = p.name + ": "
		in.Width = 40
		if i == 0 {
			in.Focus()
		}
		m.inputs[i] = in
	}
	m.focusIdx = 0
}

// callType runs on a tea goroutine; the session takes the execution lock
// for the duration of the call.
func (m *interactiveModel) callType() tea.Msg {
	ti := m.types[m.selected]

	// Empty trailing fields are omitted so optional parameters keep their
	// defaults.
	var args []string
	for _, in := range m.inputs {
		args = append(args, in.Value())
	}
	for len(args) > 0 && args[len(args)-1] == "" {
		args = args[:len(args)-1]
	}

	result, err := m.s.call(ti.name, args, nil)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: result}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.types) == 0 {
		return "Loading types..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Type Explorer"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectType:
		b.WriteString("Select a type to call:\n\n")
		for i, ti := range m.types {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + m.formatType(ti)))
			} else {
				b.WriteString("  " + m.formatType(ti))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		sel := m.types[m.selected]
		b.WriteString(paramStyle.Render("mro: " + strings.Join(sel.mro, " -> ")))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		ti := m.types[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", typeStyle.Render(ti.name)))
		for i, in := range m.inputs {
			b.WriteString(in.View())
			b.WriteString(" ")
			b.WriteString(paramStyle.Render(witTypeStr(ti.params[i].witType)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		ti := m.types[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", typeStyle.Render(ti.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatType(ti typeInfo) string {
	var params []string
	for _, p := range ti.params {
		params = append(params, p.name+": "+paramStyle.Render(witTypeStr(p.witType)))
	}
	return typeStyle.Render(ti.name) + "(" + strings.Join(params, ", ") + ")"
}

func runInteractive(s *session) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	p := tea.NewProgram(newInteractiveModel(s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
