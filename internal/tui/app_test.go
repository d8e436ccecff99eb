package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/deferview/internal/config"
	"github.com/kingrea/deferview/internal/deferral"
	"github.com/kingrea/deferview/internal/logbook"
	"github.com/kingrea/deferview/internal/paint/painttest"
)

func newTestApp(t *testing.T, units int) (*App, *painttest.Host) {
	t.Helper()
	projectDir := t.TempDir()
	if err := config.InitProjectDir(projectDir); err != nil {
		t.Fatalf("init project dir: %v", err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	host := painttest.New()
	app, err := NewApp(cfg, WithHost(host), WithUnits(units))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app, host
}

func press(t *testing.T, app *App, keys string) tea.Cmd {
	t.Helper()
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	model, cmd := app.Update(msg)
	if model != app {
		t.Fatalf("unexpected model %T", model)
	}
	return cmd
}

func TestTilesRevealAfterMount(t *testing.T) {
	app, host := newTestApp(t, 6)
	app.Init()
	if !strings.Contains(app.View(), "0/6") {
		t.Fatalf("expected nothing shown before the host runs:\n%s", app.View())
	}
	host.Settle()
	if app.revealed != 6 {
		t.Fatalf("revealed = %d, want 6", app.revealed)
	}
	if !strings.Contains(app.View(), "6/6") {
		t.Fatalf("status bar does not report all tiles:\n%s", app.View())
	}
	if got := app.sched.State(); got != deferral.StateIdle {
		t.Fatalf("scheduler state = %s", got)
	}
}

func TestPauseHoldsBackRemainingTiles(t *testing.T) {
	app, host := newTestApp(t, 4)
	app.Init()
	host.Flush()
	press(t, app, "p")
	host.Settle()
	if app.revealed != 1 {
		t.Fatalf("revealed = %d while paused, want the in-flight tile only", app.revealed)
	}
	if !strings.Contains(app.statusMsg, "Paused") {
		t.Fatalf("status = %q", app.statusMsg)
	}
	press(t, app, "r")
	host.Settle()
	if app.revealed != 4 {
		t.Fatalf("revealed = %d after resume, want 4", app.revealed)
	}
}

func TestSettingKeysEditLiveSettings(t *testing.T) {
	app, _ := newTestApp(t, 0)
	press(t, app, "m")
	press(t, app, "+")
	press(t, app, "+")
	press(t, app, "-")
	press(t, app, "]")
	press(t, app, "]")
	press(t, app, "[")

	want := deferral.Settings{Mode: deferral.ModeSync, Delay: 10 * time.Millisecond, BatchSize: 1}
	if got := app.settings.Settings(); got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
	press(t, app, "-")
	press(t, app, "-")
	if got := app.settings.Settings().Delay; got != 0 {
		t.Fatalf("delay went negative: %s", got)
	}
}

func TestSaveWritesConfig(t *testing.T) {
	app, _ := newTestApp(t, 0)
	press(t, app, "m")
	press(t, app, "m")
	press(t, app, "w")
	if app.err != nil {
		t.Fatalf("save failed: %v", app.err)
	}
	reloaded, err := config.NewConfig(app.config.ProjectDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Settings().Mode; got != deferral.ModeAsyncConcurrent {
		t.Fatalf("saved mode = %s", got)
	}
}

func TestUnmountCancelsAndRemountReveals(t *testing.T) {
	app, host := newTestApp(t, 5)
	app.Init()
	host.Flush()
	press(t, app, "u")
	host.Settle()
	stats := app.sched.Stats()
	if stats.Queued != 0 || app.revealed != 0 {
		t.Fatalf("unmount left work behind: %+v revealed=%d", stats, app.revealed)
	}
	if stats.Cancelled != 5 {
		t.Fatalf("cancelled = %d, want 5", stats.Cancelled)
	}

	press(t, app, "u")
	host.Settle()
	if app.revealed != 5 {
		t.Fatalf("revealed = %d after remount, want 5", app.revealed)
	}
}

func TestQuitKeys(t *testing.T) {
	app, _ := newTestApp(t, 0)
	cmd := press(t, app, "q")
	if cmd == nil {
		t.Fatalf("q did not return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q did not quit")
	}
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("ctrl+c did not return a command")
	}
}

func TestJournalShowsInView(t *testing.T) {
	app, _ := newTestApp(t, 0)
	press(t, app, "p")
	view := app.View()
	if !strings.Contains(view, "JOURNAL") || !strings.Contains(view, "Paused") {
		t.Fatalf("journal panel missing from view:\n%s", view)
	}
}

func TestStatusWithPercentIsLoggedVerbatim(t *testing.T) {
	app, _ := newTestApp(t, 0)
	app.setStatus("Saved to %s", "/tmp/100%done")
	if !strings.Contains(app.View(), "Saved to /tmp/100%done") {
		t.Fatalf("status text was reformatted:\n%s", app.View())
	}
	for _, line := range app.journal {
		if strings.Contains(line, "%!") {
			t.Fatalf("journal line garbled: %q", line)
		}
	}
}

func TestJournalPanelUsesCachedTail(t *testing.T) {
	app, _ := newTestApp(t, 0)
	other, err := logbook.New(app.config.JournalPath())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	other.Info("written behind the app's back")
	if strings.Contains(app.View(), "behind the app") {
		t.Fatalf("view reread the journal file")
	}
	press(t, app, "p")
	view := app.View()
	if !strings.Contains(view, "behind the app") || !strings.Contains(view, "Paused") {
		t.Fatalf("journal cache not refreshed after append:\n%s", view)
	}
}
