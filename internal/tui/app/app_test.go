package app

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"crunch/internal/history"
	"crunch/internal/loadgen"
	"crunch/internal/stats"
	"crunch/internal/tui/views"
)

type fakeController struct {
	mu      sync.Mutex
	started []loadgen.RunConfig
	stops   int
	err     error
}

func (f *fakeController) Start(cfg loadgen.RunConfig) (loadgen.RunState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return loadgen.RunState{}, f.err
	}
	f.started = append(f.started, cfg)
	return loadgen.RunState{Running: true, Phase: loadgen.PhaseRunning, RunID: "run-1", Config: &cfg}, nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeController) MaxCores() int { return 4 }

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func newTestModel(store *history.Store) (Model, *fakeController) {
	ctrl := &fakeController{}
	if store == nil {
		store = history.NewStore()
	}
	return NewModel(ctrl, make(stats.UpdateChan, 1), store, nil), ctrl
}

func TestStartFromForm(t *testing.T) {
	m, ctrl := newTestModel(nil)
	m, _ = update(t, m, key(tea.KeyCtrlR))

	require.True(t, m.RunActive)
	require.Equal(t, "run-1", m.RunID)
	require.Equal(t, ViewDashboard, m.CurrentView)
	require.Equal(t, []loadgen.RunConfig{{Duration: 300, Intensity: 80, Cores: 4}}, ctrl.started)
}

func TestStartRejectedShowsStatus(t *testing.T) {
	m, ctrl := newTestModel(nil)
	m.FormView.Inputs[views.FieldDuration].SetValue("abc")
	m, cmd := update(t, m, key(tea.KeyCtrlR))
	require.NotNil(t, cmd)
	require.False(t, m.RunActive)
	require.Contains(t, m.StatusMsg, "duration must be an integer")
	require.Empty(t, ctrl.started)

	m.FormView.Inputs[views.FieldDuration].SetValue("10")
	ctrl.err = loadgen.ErrAlreadyRunning
	m, _ = update(t, m, key(tea.KeyCtrlR))
	require.False(t, m.RunActive)
	require.Contains(t, m.StatusMsg, "already running")
}

func TestStopSwitchesToHistory(t *testing.T) {
	m, ctrl := newTestModel(nil)
	m, _ = update(t, m, key(tea.KeyCtrlR))

	m, cmd := update(t, m, key(tea.KeyCtrlS))
	require.True(t, m.Stopping)
	require.NotNil(t, cmd)

	msg := cmd()
	require.Equal(t, 1, ctrl.stops)
	m, _ = update(t, m, msg)
	require.False(t, m.RunActive)
	require.False(t, m.Stopping)
	require.Equal(t, ViewHistory, m.CurrentView)
}

func TestStopWhenIdleDoesNothing(t *testing.T) {
	m, ctrl := newTestModel(nil)
	_, cmd := update(t, m, key(tea.KeyCtrlS))
	require.Nil(t, cmd)
	require.Zero(t, ctrl.stops)
}

func TestQuitStopsActiveRun(t *testing.T) {
	m, ctrl := newTestModel(nil)
	m, _ = update(t, m, key(tea.KeyCtrlR))

	m, cmd := update(t, m, key(tea.KeyCtrlQ))
	require.NotNil(t, cmd)
	msg := cmd()
	require.Equal(t, 1, ctrl.stops)

	_, cmd = update(t, m, msg)
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestQuitWhenIdle(t *testing.T) {
	m, ctrl := newTestModel(nil)
	_, cmd := update(t, m, key(tea.KeyCtrlQ))
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Zero(t, ctrl.stops)
}

func TestExpiredRunDetectedFromStats(t *testing.T) {
	m, _ := newTestModel(nil)
	m, _ = update(t, m, key(tea.KeyCtrlR))

	cfg := loadgen.RunConfig{Duration: 300, Intensity: 80, Cores: 4}
	m, _ = update(t, m, StatsMsg(stats.Snapshot{Running: true, Phase: loadgen.PhaseRunning, RunID: "run-1", Config: &cfg, CPUPercent: 70}))
	require.True(t, m.RunActive)
	require.Equal(t, 70.0, m.DashView.Stats.CPUPercent)

	m, _ = update(t, m, StatsMsg(stats.Snapshot{Phase: loadgen.PhaseIdle}))
	require.False(t, m.RunActive)
	require.Equal(t, ViewHistory, m.CurrentView)
}

func seededStore() *history.Store {
	store := history.NewStore()
	store.Save(history.Item{
		ID:        "0123456789abcdef",
		Config:    loadgen.RunConfig{Duration: 42, Intensity: 33, Cores: 2},
		StartedAt: time.Now().Add(-time.Minute),
		StoppedAt: time.Now(),
		Elapsed:   42,
		Reason:    loadgen.StopExpired,
	})
	return store
}

func TestHistoryReplay(t *testing.T) {
	m, _ := newTestModel(seededStore())
	m, _ = update(t, m, key(tea.KeyCtrlH))
	require.Equal(t, ViewHistory, m.CurrentView)

	m, _ = update(t, m, key(tea.KeyEnter))
	require.Equal(t, ViewForm, m.CurrentView)
	cfg, err := m.FormView.GetConfig()
	require.NoError(t, err)
	require.Equal(t, loadgen.RunConfig{Duration: 42, Intensity: 33, Cores: 2}, cfg)
}

func TestExportSelected(t *testing.T) {
	m, _ := newTestModel(seededStore())
	m.ExportDir = t.TempDir()
	m, _ = update(t, m, key(tea.KeyCtrlH))

	m, cmd := update(t, m, key(tea.KeyCtrlP))
	require.NotNil(t, cmd)
	base := filepath.Join(m.ExportDir, "crunch_run_01234567")
	require.Contains(t, m.StatusMsg, base)
	require.FileExists(t, base+".csv")
	require.FileExists(t, base+".json")
}

func TestViewNavigation(t *testing.T) {
	m, _ := newTestModel(nil)
	m, _ = update(t, m, key(tea.KeyCtrlD))
	require.Equal(t, ViewDashboard, m.CurrentView)
	m, _ = update(t, m, key(tea.KeyCtrlRight))
	require.Equal(t, ViewHistory, m.CurrentView)
	m, _ = update(t, m, key(tea.KeyCtrlRight))
	require.Equal(t, ViewForm, m.CurrentView)
	m, _ = update(t, m, key(tea.KeyCtrlLeft))
	require.Equal(t, ViewHistory, m.CurrentView)

	require.Equal(t, "Loading...", m.View())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.Contains(t, m.View(), "Past Runs")
}
