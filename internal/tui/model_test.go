package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patient-rag/internal/models"
)

type fakeRAG struct {
	resp *models.PromptResponse
	err  error
}

func (f *fakeRAG) Query(context.Context, string, string) (*models.PromptResponse, error) {
	return f.resp, f.err
}

func TestListPatients(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"alice.pdf", "bob.txt", "notes.xyz"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	patients, err := ListPatients(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, patients)
}

func TestListPatientsMissingDir(t *testing.T) {
	_, err := ListPatients(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestSelectPatientAndAsk(t *testing.T) {
	service := &fakeRAG{resp: &models.PromptResponse{
		Query:   "headaches?",
		Content: "No correlation is detected.",
		Source:  "alice.pdf (chunk 0)",
	}}
	m := New(service, []string{"alice", "bob"})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model := updated.(Model)

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	assert.Equal(t, "alice", model.selected)

	model.input.SetValue("headaches?")
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)

	view := model.View()
	assert.Contains(t, view, "No correlation is detected.")
	assert.Contains(t, view, "alice")
}

func TestQueryErrorSurfacesInStatus(t *testing.T) {
	service := &fakeRAG{err: errors.New("could not embed the question")}
	m := New(service, []string{"alice"})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model := updated.(Model)
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)

	model.input.SetValue("question")
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)

	assert.Contains(t, model.status, "could not embed")
}

func TestEscReturnsToPatientList(t *testing.T) {
	m := New(&fakeRAG{}, []string{"alice"})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model := updated.(Model)
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	require.Equal(t, "alice", model.selected)

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	model = updated.(Model)
	assert.Empty(t, model.selected)
}
