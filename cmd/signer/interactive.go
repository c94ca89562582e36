package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/wasm-signer/host"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	hintStyle = lipgloss.NewStyle().
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

func newInteractiveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Explore the guest operations in a terminal UI",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("interactive mode requires a terminal")
			}

			s, done, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer done()

			source := opts.wasmFile
			if source == "" {
				source = "in-process guest"
			}
			p := tea.NewProgram(newInteractiveModel(s, source), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

// operation is one session call offered in the menu.
type operation struct {
	run    func(s host.Session, args []string) (string, error)
	name   string
	params []paramInfo
}

type paramInfo struct {
	name string
	hint string
}

var operations = []operation{
	{
		name: "keygen",
		run: func(s host.Session, _ []string) (string, error) {
			key, addr, err := s.NewPrivateKey()
			if err != nil {
				return "", err
			}
			defer host.ZeroizePrivateKey(key)
			return fmt.Sprintf("private key: %s\naddress:     %s", key, addr), nil
		},
	},
	{
		name:   "address",
		params: []paramInfo{{name: "key", hint: "key1..."}},
		run: func(s host.Session, args []string) (string, error) {
			return s.Address([]byte(args[0]))
		},
	},
	{
		name:   "sign",
		params: []paramInfo{{name: "key", hint: "key1..."}, {name: "message", hint: "text"}},
		run: func(s host.Session, args []string) (string, error) {
			return s.Sign([]byte(args[0]), []byte(args[1]))
		},
	},
	{
		name:   "verify",
		params: []paramInfo{{name: "address", hint: "addr1..."}, {name: "message", hint: "text"}, {name: "signature", hint: "sig1..."}},
		run: func(s host.Session, args []string) (string, error) {
			ok, err := s.Verify(args[0], []byte(args[1]), args[2])
			if err != nil {
				return "", err
			}
			if !ok {
				return "✗ signature is invalid", nil
			}
			return "✓ signature is valid", nil
		},
	},
	{
		name:   "hash",
		params: []paramInfo{{name: "message", hint: "text"}},
		run: func(s host.Session, args []string) (string, error) {
			text, err := s.HashMessageToString([]byte(args[0]))
			if err != nil {
				return "", err
			}
			raw, err := s.HashMessage([]byte(args[0]))
			if err != nil {
				return "", err
			}
			return text + "\n" + hex.EncodeToString(raw), nil
		},
	},
	{
		name:   "format",
		params: []paramInfo{{name: "message", hint: "text"}, {name: "chunks", hint: "1-32"}},
		run: func(s host.Session, args []string) (string, error) {
			chunks, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil {
				return "", fmt.Errorf("chunks: %w", err)
			}
			out, err := s.FormatMessage([]byte(args[0]), chunks)
			return string(out), err
		},
	},
	{
		name:   "recover",
		params: []paramInfo{{name: "formatted", hint: "{ c0: { f0: ...u128, ... } }"}},
		run: func(s host.Session, args []string) (string, error) {
			out, err := s.RecoverMessage([]byte(args[0]))
			return string(out), err
		},
	},
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	session  host.Session
	source   string
	result   string
	ops      []operation
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

func newInteractiveModel(s host.Session, source string) *interactiveModel {
	return &interactiveModel{
		session: s,
		source:  source,
		ops:     operations,
		state:   stateSelectOp,
	}
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
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
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callOperation
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callOperation

			case stateShowResult:
				m.reset()
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs, stateShowResult:
				m.reset()
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		m.clearInputs()
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

func (m *interactiveModel) reset() {
	m.state = stateSelectOp
	m.result = ""
	m.err = nil
	m.clearInputs()
}

// clearInputs drops typed values, which may include private keys.
func (m *interactiveModel) clearInputs() {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.inputs = nil
}

func (m *interactiveModel) prepareInputs() {
	op := m.ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.params))
	for i, p := range op.params {
		ti := textinput.New()
		ti.Placeholder = p.hint
		ti.Prompt = p.name + ": "
		ti.Width = 60
		ti.CharLimit = 0
		if p.name == "key" {
			ti.EchoMode = textinput.EchoPassword
		}
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callOperation() tea.Msg {
	if m.session == nil {
		return callResultMsg{err: host.ErrNoModule}
	}

	op := m.ops[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}

	result, err := op.run(m.session, args)
	return callResultMsg{result: result, err: err}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Signer"))
	b.WriteString(" ")
	b.WriteString(m.source)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation:\n\n")
		for i, op := range m.ops {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + m.formatOp(op)))
			} else {
				b.WriteString("  " + m.formatOp(op))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateInputArgs:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Running %s\n\n", opStyle.Render(op.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", opStyle.Render(op.name)))
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

func (m *interactiveModel) formatOp(op operation) string {
	var params []string
	for _, p := range op.params {
		params = append(params, p.name+": "+hintStyle.Render(p.hint))
	}
	return opStyle.Render(op.name) + "(" + strings.Join(params, ", ") + ")"
}
