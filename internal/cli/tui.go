package cli

import (
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/stagemap/pkg/editor"
)

var (
	buttonStyle         = lipgloss.NewStyle().Padding(0, 2).Foreground(colorGray)
	buttonSelectedStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(colorWhite).Background(colorRed)
	dialogStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(1, 2)
)

// =============================================================================
// ConfirmModel - removal confirmation dialog
// =============================================================================

// ConfirmModel is the bubbletea model of a two-button confirmation dialog.
// Cancel is preselected.
type ConfirmModel struct {
	Prompt    editor.Prompt
	Focused   bool // true when the confirm button has focus
	Confirmed bool
	Done      bool
}

// NewConfirmModel creates a dialog for p.
func NewConfirmModel(p editor.Prompt) ConfirmModel {
	return ConfirmModel{Prompt: p}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "left", "right", "tab", "shift+tab", "h", "l":
		m.Focused = !m.Focused
	case "y":
		m.Confirmed, m.Done = true, true
		return m, tea.Quit
	case "n", "q", "esc", "ctrl+c":
		m.Confirmed, m.Done = false, true
		return m, tea.Quit
	case "enter":
		m.Confirmed, m.Done = m.Focused, true
		return m, tea.Quit
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	if m.Done {
		return ""
	}
	cancel, confirm := buttonSelectedStyle, buttonStyle
	if m.Focused {
		cancel, confirm = buttonStyle, buttonSelectedStyle
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.Prompt.Header))
	b.WriteString("\n\n")
	b.WriteString(m.Prompt.Body)
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		cancel.Render(m.Prompt.Cancel), "  ", confirm.Render(m.Prompt.Confirm)))
	return dialogStyle.Render(b.String()) + "\n" + StyleDim.Render("←/→ choose  ⏎ select  y/n") + "\n"
}

// =============================================================================
// Confirmer
// =============================================================================

// teaConfirmer asks for confirmation in the terminal.
type teaConfirmer struct {
	in  io.Reader
	out io.Writer
	err error
}

func (c *teaConfirmer) Confirm(p editor.Prompt, onConfirmed func()) {
	final, err := tea.NewProgram(NewConfirmModel(p), tea.WithInput(c.in), tea.WithOutput(c.out)).Run()
	if err != nil {
		c.err = err
		return
	}
	if m, ok := final.(ConfirmModel); ok && m.Confirmed {
		onConfirmed()
	}
}

var _ editor.Confirmer = (*teaConfirmer)(nil)
