package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/launchkit/launchkit/pkg/wizard/picker"
)

// Messages sent from the picker goroutine via Program.Send.
type setItemsMsg struct {
	rows      []picker.Choice
	highlight int
}

type setBusyMsg struct{ busy bool }

type setStepsMsg struct{ current, total int }

type rowItem struct {
	row picker.Choice
}

func (i rowItem) Title() string {
	if i.row.Invalid {
		return "✗ " + i.row.Label
	}
	return i.row.Label
}

func (i rowItem) Description() string {
	if i.row.Invalid && i.row.Message != "" {
		return i.row.Message
	}
	return i.row.Description
}

func (i rowItem) FilterValue() string { return i.row.Label }

type model struct {
	surface *Surface

	title       string
	list        list.Model
	input       textinput.Model
	inputOn     bool
	buttons     []picker.Button
	busy        bool
	stepCurrent int
	stepTotal   int

	width  int
	height int

	lastIndex int
	lastText  string
}

func newModel(s *Surface, opts picker.ShowOptions) model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.Foreground(lipgloss.Color("252"))
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("205")).Bold(true)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.Foreground(lipgloss.Color("244")).Italic(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("212")).Italic(true)

	l := list.New(rowsToItems(opts.Rows), delegate, 0, 0)
	l.Title = styleTitle.Render(opts.Title)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(false)
	if opts.Highlight > 0 {
		l.Select(opts.Highlight)
	}

	m := model{
		surface:     s,
		title:       opts.Title,
		list:        l,
		inputOn:     opts.EnableInput,
		buttons:     opts.Buttons,
		busy:        opts.Busy,
		stepCurrent: opts.StepCurrent,
		stepTotal:   opts.StepTotal,
		lastIndex:   opts.Highlight,
	}
	if opts.EnableInput {
		m.input = textinput.New()
		m.input.Prompt = stylePrompt.Render("> ")
		m.input.Placeholder = opts.InputPlaceholder
		m.input.Focus()
	}
	return m
}

func rowsToItems(rows []picker.Choice) []list.Item {
	items := make([]list.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, rowItem{row: r})
	}
	return items
}

func (m model) Init() tea.Cmd {
	if m.inputOn {
		return textinput.Blink
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.applySize()
		return m, nil

	case setItemsMsg:
		m.list.SetItems(rowsToItems(msg.rows))
		if msg.highlight >= 0 && msg.highlight < len(msg.rows) {
			m.list.Select(msg.highlight)
			m.lastIndex = msg.highlight
		}
		return m, nil

	case setBusyMsg:
		m.busy = msg.busy
		return m, nil

	case setStepsMsg:
		m.stepCurrent = msg.current
		m.stepTotal = msg.total
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.surface.fireDismiss()
			return m, tea.Quit
		case "q":
			if !m.inputOn {
				m.surface.fireDismiss()
				return m, tea.Quit
			}
		case "enter":
			if it, ok := m.list.SelectedItem().(rowItem); ok {
				m.surface.fireCommit([]string{it.row.Label}, m.inputText())
			}
			return m, nil
		}
		if id, ok := m.buttonForKey(msg.String()); ok {
			m.surface.fireButton(id)
			return m, nil
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	if idx := m.list.Index(); idx != m.lastIndex {
		m.lastIndex = idx
		m.surface.fireHighlight(idx)
	}
	if m.inputOn {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if text := m.input.Value(); text != m.lastText {
			m.lastText = text
			m.surface.fireInput(text)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	var b strings.Builder
	if m.stepCurrent > 0 && m.stepTotal > 0 {
		b.WriteString(styleSubtitle.Render(fmt.Sprintf("Step %d of %d", m.stepCurrent, m.stepTotal)))
		b.WriteString("\n")
	}
	b.WriteString(m.list.View())
	b.WriteString("\n")
	if m.inputOn {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	if m.busy {
		b.WriteString(styleBusy.Render("Loading…"))
		b.WriteString("\n")
	}
	if detail := m.highlightedDetail(); detail != "" {
		b.WriteString(styleDetail.Render(detail))
		b.WriteString("\n")
	}
	b.WriteString(stylePrompt.Render(m.hints()))
	return b.String()
}

func (m model) highlightedDetail() string {
	it, ok := m.list.SelectedItem().(rowItem)
	if !ok {
		return ""
	}
	if it.row.Invalid && it.row.Message != "" {
		return styleError.Render(it.row.Message)
	}
	return it.row.Detail
}

func (m model) hints() string {
	parts := []string{"↑/↓ move", "Enter select", "Esc cancel"}
	for i, btn := range m.buttons {
		parts = append(parts, fmt.Sprintf("F%d %s", i+1, btn.Label))
	}
	return strings.Join(parts, " · ")
}

// buttonForKey maps F1..F4 to the configured buttons in order.
func (m model) buttonForKey(key string) (string, bool) {
	for i, btn := range m.buttons {
		if key == fmt.Sprintf("f%d", i+1) {
			return btn.ID, true
		}
	}
	return "", false
}

func (m model) inputText() string {
	if !m.inputOn {
		return ""
	}
	return m.input.Value()
}

func (m *model) applySize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	offset := 4
	if m.inputOn {
		offset += 2
	}
	height := m.height - offset
	if height < 4 {
		height = 4
	}
	m.list.SetSize(m.width, height)
	if m.inputOn {
		m.input.Width = m.width - 4
	}
}
