// Package tui implements the two-pane live preview: a SQL editor on
// the left, the FetchXML counterpart on the right, re-transpiled on
// every keystroke through a preview session.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/querylink/fetchsql/internal/preview"
)

var (
	focusedBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))
	blurredBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Model is the bubbletea model for the preview screen.
type Model struct {
	session  *preview.Session
	sqlPane  textarea.Model
	xmlPane  textarea.Model
	focused  preview.Side
	last     preview.Result
	width    int
	height   int
	quitting bool
}

// NewModel creates the preview model. initialSQL seeds the SQL pane
// and is transpiled immediately when non-empty.
func NewModel(session *preview.Session, initialSQL string) Model {
	sqlPane := textarea.New()
	sqlPane.Placeholder = "SELECT name FROM account"
	sqlPane.Prompt = ""
	sqlPane.ShowLineNumbers = true
	sqlPane.Focus()

	xmlPane := textarea.New()
	xmlPane.Placeholder = "<fetch>...</fetch>"
	xmlPane.Prompt = ""
	xmlPane.ShowLineNumbers = true

	m := Model{
		session: session,
		sqlPane: sqlPane,
		xmlPane: xmlPane,
		focused: preview.SideSQL,
	}
	if strings.TrimSpace(initialSQL) != "" {
		m.sqlPane.SetValue(initialSQL)
		m.last = session.UpdateSQL(initialSQL)
		if m.last.Valid {
			m.xmlPane.SetValue(m.last.FetchXML)
		}
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			m.toggleFocus()
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.focused == preview.SideSQL {
		before := m.sqlPane.Value()
		m.sqlPane, cmd = m.sqlPane.Update(msg)
		if after := m.sqlPane.Value(); after != before {
			m.last = m.session.UpdateSQL(after)
			if m.last.Valid {
				m.xmlPane.SetValue(m.last.FetchXML)
			}
		}
	} else {
		before := m.xmlPane.Value()
		m.xmlPane, cmd = m.xmlPane.Update(msg)
		if after := m.xmlPane.Value(); after != before {
			m.last = m.session.UpdateFetchXML(after)
			if m.last.Valid {
				m.sqlPane.SetValue(m.last.SQL)
			}
		}
	}
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focused == preview.SideSQL {
		m.focused = preview.SideFetchXML
		m.sqlPane.Blur()
		m.xmlPane.Focus()
	} else {
		m.focused = preview.SideSQL
		m.xmlPane.Blur()
		m.sqlPane.Focus()
	}
}

func (m *Model) resize() {
	// Two panes side by side, border takes 2 cells each way, status
	// area keeps four lines at the bottom.
	paneWidth := m.width/2 - 4
	paneHeight := m.height - 7
	if paneWidth < 20 {
		paneWidth = 20
	}
	if paneHeight < 3 {
		paneHeight = 3
	}
	m.sqlPane.SetWidth(paneWidth)
	m.sqlPane.SetHeight(paneHeight)
	m.xmlPane.SetWidth(paneWidth)
	m.xmlPane.SetHeight(paneHeight)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sqlStyle, xmlStyle := blurredBorder, blurredBorder
	if m.focused == preview.SideSQL {
		sqlStyle = focusedBorder
	} else {
		xmlStyle = focusedBorder
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(" SQL "),
		sqlStyle.Render(m.sqlPane.View()),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(" FetchXML "),
		xmlStyle.Render(m.xmlPane.View()),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	return lipgloss.JoinVertical(lipgloss.Left,
		panes,
		m.statusView(),
		helpStyle.Render(" tab: switch pane • esc: quit"),
	)
}

// statusView renders diagnostics for the edited side, or warnings and
// the resolved entity when the pair is in sync.
func (m Model) statusView() string {
	var lines []string

	if len(m.last.Diagnostics) > 0 {
		for _, d := range m.last.Diagnostics {
			if d.Line > 0 {
				lines = append(lines, errorStyle.Render(fmt.Sprintf(" %d:%d %s", d.Line, d.Column, d.Message)))
			} else {
				lines = append(lines, errorStyle.Render(" "+d.Message))
			}
		}
		return strings.Join(lines, "\n")
	}

	for _, w := range m.last.Warnings {
		lines = append(lines, warningStyle.Render(fmt.Sprintf(" warning (%s): %s", w.Feature, w.Message)))
	}
	if m.last.Valid {
		status := " ok"
		if m.last.EntityName != "" {
			status = " ok • entity: " + m.last.EntityName
		}
		if m.last.Transformation.NeedsTransformation {
			status += fmt.Sprintf(" • %d virtual column(s) rewritten", len(m.last.Transformation.VirtualColumns))
		}
		lines = append(lines, helpStyle.Render(status))
	}
	if len(lines) == 0 {
		return helpStyle.Render(" start typing to transpile")
	}
	return strings.Join(lines, "\n")
}

// Run starts the preview program and blocks until the user quits.
func Run(session *preview.Session, initialSQL string) error {
	program := tea.NewProgram(NewModel(session, initialSQL), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
