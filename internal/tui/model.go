package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"patient-rag/internal/models"
	"patient-rag/internal/parser"
)

// RAGPort is the TUI-facing subset of the query responder.
type RAGPort interface {
	Query(ctx context.Context, patient, query string) (*models.PromptResponse, error)
}

// ListPatients derives the selectable patients from the documents directory:
// one patient per supported file, named by the file's basename.
func ListPatients(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var patients []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !parser.Supported(ext) {
			continue
		}
		patients = append(patients, strings.TrimSuffix(entry.Name(), ext))
	}
	return patients, nil
}

// Model is the Bubble Tea model: pick a patient, ask a question, read the
// grounded answer.
type Model struct {
	service  RAGPort
	patients []string
	cursor   int
	selected string
	input    textinput.Model
	viewport viewport.Model
	status   string
	ready    bool
}

func New(service RAGPort, patients []string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a question and press Enter"
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  service,
		patients: patients,
		input:    ti,
		viewport: vp,
		status:   "Select a patient (up/down, Enter).",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := answerBoxStyle.GetFrameSize()
		reserved := 4 + fh // header, patient line, input, status
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = vh
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.selected == "" {
			return m.updatePatientList(msg)
		}
		return m.updateQuery(msg)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updatePatientList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "down":
		if len(m.patients) > 0 {
			m.cursor = (m.cursor + 1) % len(m.patients)
		}
	case "up":
		if len(m.patients) > 0 {
			m.cursor = (m.cursor - 1 + len(m.patients)) % len(m.patients)
		}
	case "enter":
		if len(m.patients) > 0 {
			m.selected = m.patients[m.cursor]
			m.status = fmt.Sprintf("Asking about %s. Esc returns to the patient list.", m.selected)
			m.input.Focus()
			return m, textinput.Blink
		}
	}
	return m, nil
}

func (m Model) updateQuery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.selected = ""
		m.input.SetValue("")
		m.viewport.SetContent("")
		m.status = "Select a patient (up/down, Enter)."
		m.input.Blur()
		return m, nil
	case "enter":
		q := strings.TrimSpace(m.input.Value())
		if q == "" {
			return m, nil
		}
		resp, err := m.service.Query(context.Background(), m.selected, q)
		if err != nil {
			m.status = "Error: " + err.Error()
			m.viewport.SetContent("")
			return m, nil
		}
		m.status = fmt.Sprintf("Answer for %q", q)
		body := resp.Content
		if resp.Source != "" {
			body += "\n\n" + sourceStyle.Render("Sources:\n"+resp.Source)
		}
		m.viewport.SetContent(body)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Health Assistant")
	if m.selected == "" {
		var sb strings.Builder
		sb.WriteString(header + "\n\n")
		if len(m.patients) == 0 {
			sb.WriteString("No patient records found.\n")
		}
		for i, p := range m.patients {
			prefix := "  "
			line := p
			if i == m.cursor {
				prefix = "> "
				line = selectedStyle.Render(p)
			}
			sb.WriteString(prefix + line + "\n")
		}
		sb.WriteString("\n" + statusStyle.Render(m.status))
		return sb.String()
	}
	patientLine := fmt.Sprintf("Patient: %s", selectedStyle.Render(m.selected))
	answer := answerBoxStyle.Render(m.viewport.View())
	input := m.input.View()
	status := statusStyle.Render(m.status)
	return header + "\n" + patientLine + "\n" + answer + "\n" + input + "\n" + status
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
