package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Luvion1/fax-native/bridge"
	"github.com/Luvion1/fax-native/config"
	"github.com/Luvion1/fax-native/lex"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	posStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type inspectorState int

const (
	stateEditSource inspectorState = iota
	stateBrowseTokens
)

type inspectorModel struct {
	err      error
	ctx      *bridge.Context
	filename string
	input    textinput.Model
	tokens   []lex.Token
	wireSize int
	selected int
	state    inspectorState
}

type lexedMsg struct {
	err      error
	tokens   []lex.Token
	wireSize int
}

func newInspectorModel(filename, configPath string) (*inspectorModel, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	ti := textinput.New()
	ti.Placeholder = "let x = 42;"
	ti.Prompt = "source: "
	ti.Width = 60
	ti.Focus()

	m := &inspectorModel{
		ctx:      newContext(cfg),
		filename: filename,
		input:    ti,
		state:    stateEditSource,
	}
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			m.ctx.Close()
			return nil, err
		}
		m.input.SetValue(string(data))
	}
	return m, nil
}

func (m *inspectorModel) Init() tea.Cmd {
	if m.filename != "" {
		return m.lexSource
	}
	return textinput.Blink
}

// lexSource round-trips the source through the wire format, so the
// inspector shows exactly what a consumer of the encoded stream sees.
func (m *inspectorModel) lexSource() tea.Msg {
	view, err := m.ctx.EncodeTokens(m.input.Value())
	if err != nil {
		return lexedMsg{err: err}
	}
	size := view.Len()
	if err := m.ctx.DecodeTokens(view.Bytes()); err != nil {
		return lexedMsg{err: err}
	}
	tokens := make([]lex.Token, m.ctx.TokenCount())
	for i := range tokens {
		tokens[i] = m.ctx.TokenAt(i)
	}
	return lexedMsg{tokens: tokens, wireSize: size}
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.ctx.Close()
			return m, tea.Quit

		case "q":
			if m.state == stateBrowseTokens {
				m.ctx.Close()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateBrowseTokens && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateBrowseTokens && m.selected < len(m.tokens)-1 {
				m.selected++
			}

		case "enter":
			if m.state == stateEditSource {
				return m, m.lexSource
			}

		case "e", "esc":
			if m.state == stateBrowseTokens {
				m.state = stateEditSource
				m.input.Focus()
				return m, textinput.Blink
			}
		}

	case lexedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.tokens = msg.tokens
		m.wireSize = msg.wireSize
		m.selected = 0
		m.state = stateBrowseTokens
		m.input.Blur()
	}

	if m.state == stateEditSource {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *inspectorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Fax Token Inspector"))
	if m.filename != "" {
		b.WriteString(" ")
		b.WriteString(m.filename)
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateEditSource:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
		}
		b.WriteString(helpStyle.Render("enter lex • ctrl+c quit"))

	case stateBrowseTokens:
		b.WriteString(fmt.Sprintf("%d tokens, %d bytes on the wire\n\n", len(m.tokens), m.wireSize))
		for i, tok := range m.tokens {
			line := m.formatToken(tok)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • e edit source • q quit"))
	}

	return b.String()
}

func (m *inspectorModel) formatToken(tok lex.Token) string {
	text := tok.Text
	if text == "" {
		text = "<eof>"
	}
	return fmt.Sprintf("%s %s %s",
		posStyle.Render(fmt.Sprintf("%3d:%-3d", tok.Line, tok.Column)),
		kindStyle.Render(fmt.Sprintf("%-12s", tok.Kind)),
		textStyle.Render(text))
}

func runInteractive(filename, configPath string) error {
	m, err := newInspectorModel(filename, configPath)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
