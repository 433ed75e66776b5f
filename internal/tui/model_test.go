package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/btsguard/internal/dashboard"
	monitorDomain "github.com/allisson/btsguard/internal/monitor/domain"
	stationDomain "github.com/allisson/btsguard/internal/station/domain"
)

func typeLine(t *testing.T, m tea.Model, line string) tea.Model {
	t.Helper()
	for _, r := range line {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestModel_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ViewReplacesState", func(t *testing.T) {
		views := make(chan *dashboard.ViewModel, 1)
		m := NewModel(ctx, make(chan dashboard.Intent, 1), views)

		next, cmd := m.Update(viewMsg{view: &dashboard.ViewModel{Operator: "alice"}})
		require.NotNil(t, cmd)
		assert.Equal(t, "alice", next.(Model).view.Operator)

		views <- &dashboard.ViewModel{Operator: "bob"}
		msg := cmd()
		assert.Equal(t, "bob", msg.(viewMsg).view.Operator)
	})

	t.Run("Success_EnterSendsIntent", func(t *testing.T) {
		intents := make(chan dashboard.Intent, 1)
		var m tea.Model = NewModel(ctx, intents, make(chan *dashboard.ViewModel))

		m = typeLine(t, m, "set radio.power_dbm 33")
		m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd)
		cmd()

		select {
		case intent := <-intents:
			assert.Equal(t, dashboard.KindSetField, intent.Kind)
			assert.Equal(t, "33", intent.Value)
		case <-time.After(time.Second):
			t.Fatal("intent was not sent")
		}
		assert.Empty(t, m.(Model).input.Value())
	})

	t.Run("Error_InvalidCommandShowsHint", func(t *testing.T) {
		intents := make(chan dashboard.Intent, 1)
		var m tea.Model = NewModel(ctx, intents, make(chan *dashboard.ViewModel))

		m = typeLine(t, m, "rotate-cert")
		m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Nil(t, cmd)
		assert.Contains(t, m.(Model).hint, "usage: rotate-cert <id>")
		assert.Empty(t, intents)
	})

	t.Run("Success_QuitOnCtrlC", func(t *testing.T) {
		m := NewModel(ctx, make(chan dashboard.Intent), make(chan *dashboard.ViewModel))

		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, next.View())
	})

	t.Run("Success_WaitStopsWithContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		m := NewModel(cctx, make(chan dashboard.Intent), make(chan *dashboard.ViewModel))
		cancel()
		assert.Nil(t, m.waitForView()())
	})
}

func TestRender(t *testing.T) {
	sessions := 3
	view := &dashboard.ViewModel{
		Operator:    "alice",
		Permissions: []string{"admin"},
		Config: dashboard.ConfigView{
			Version: 6,
			Status:  "applied",
			Sections: []dashboard.SectionView{{
				Name:   "radio",
				Fields: []dashboard.FieldView{{Key: "power_dbm", Value: "30", Pending: "33", Changed: true}},
			}},
		},
		Draft:   &dashboard.DraftView{BaseVersion: 6, Changes: []string{"radio.power_dbm: 30 -> 33"}},
		Service: &stationDomain.Status{Running: true},
		Metrics: &monitorDomain.Snapshot{
			Sessions:    &sessions,
			Unavailable: map[monitorDomain.Field]string{monitorDomain.FieldCPU: "timeout"},
		},
		Notice: dashboard.Notice{Level: dashboard.LevelError, Text: "Access denied."},
	}

	out := Render(view, 0)
	assert.Contains(t, out, "operator alice [admin]")
	assert.Contains(t, out, "service: running")
	assert.Contains(t, out, "v6 applied")
	assert.Contains(t, out, "power_dbm = 30")
	assert.Contains(t, out, "-> 33")
	assert.Contains(t, out, "cpu unavailable: timeout")
	assert.Contains(t, out, "active sessions 3")
	assert.Contains(t, out, "Access denied.")
}
