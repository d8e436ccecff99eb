// internal/tui/app.go
//
// This is the interactive demo for deferview: a grid of tiles, each one a
// deferred unit released by a shared scheduler. It uses bubbletea, which
// follows The Elm Architecture:
//
// 1. Model: the app state (scheduler, tiles, counters)
// 2. Update: reacts to keys, window size and paint-host messages
// 3. View: renders the status bar, the grid and the journal
//
// Scheduler callbacks run inside Update because the paint host delivers its
// work as tea messages, so tiles can be revealed without extra locking.

package tui

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/kingrea/deferview/internal/config"
	"github.com/kingrea/deferview/internal/deferral"
	"github.com/kingrea/deferview/internal/deferred"
	"github.com/kingrea/deferview/internal/logbook"
	"github.com/kingrea/deferview/internal/paint"
	"github.com/kingrea/deferview/internal/teahost"
)

const (
	delayStep    = 10 * time.Millisecond
	journalLines = 5
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithHost replaces the Bubble Tea paint host, e.g. with a virtual-time host
// in tests. The caller is then responsible for driving it.
func WithHost(h paint.Host) AppOption {
	return func(a *App) {
		if h != nil {
			a.host = h
			a.pump = nil
		}
	}
}

// WithLogger sets the structured logger shared with the scheduler.
func WithLogger(l *slog.Logger) AppOption {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithUnits overrides the number of tiles from the config.
func WithUnits(n int) AppOption {
	return func(a *App) {
		if n >= 0 {
			a.units = n
		}
	}
}

// App is the main application model.
type App struct {
	session  string
	config   *config.Config
	logger   *slog.Logger
	logbook  *logbook.Logbook
	host     paint.Host
	pump     *teahost.Host
	settings *deferral.LiveSettings
	sched    *deferral.Scheduler

	units    int
	tiles    []*deferred.Unit
	mounted  bool
	revealed int
	started  time.Time
	lastShow time.Time

	keys      keyMap
	help      help.Model
	statusMsg string
	err       error

	// journal caches the logbook tail; it is refreshed on every append.
	journal      []string
	journalTotal int

	width  int
	height int
}

// NewApp creates the demo for an already loaded config.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tui: config is required")
	}
	pump := teahost.New(cfg.Project.Host.FrameInterval)
	app := &App{
		session:  uuid.NewString(),
		config:   cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		host:     pump,
		pump:     pump,
		settings: deferral.NewLiveSettings(cfg.Settings()),
		units:    cfg.Project.Demo.Units,
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.logger = app.logger.With("session", app.session)

	lb, err := logbook.New(cfg.JournalPath(), logbook.WithMirror(app.logger))
	if err == nil {
		app.logbook = lb
		app.refreshJournal()
	}
	app.sched = deferral.New(app.host,
		deferral.WithSettings(app.settings),
		deferral.WithLogger(app.logger),
		deferral.WithPanicHandler(func(id deferral.ID, r any) {
			app.logError("tile %d panicked: %v", id, r)
		}),
	)
	app.tiles = make([]*deferred.Unit, app.units)
	for i := range app.tiles {
		app.tiles[i] = deferred.New(tile{index: i},
			deferred.WithFallback(placeholder{}),
			deferred.OnReveal(app.onReveal),
		)
	}
	app.logInfo("Session %s opened · %d tiles · %s", app.session[:8], app.units, describeSettings(app.settings.Settings()))
	return app, nil
}

// Attach starts the paint host pump. send is usually (*tea.Program).Send.
// It does nothing when a custom host was supplied.
func (a *App) Attach(send func(tea.Msg)) {
	if a.pump != nil {
		a.pump.Start(send)
	}
}

// Close unmounts every tile and stops the pump.
func (a *App) Close() {
	a.unmountAll()
	if a.pump != nil {
		a.pump.Stop()
	}
	a.logInfo("Session %s closed · %s committed", a.session[:8], humanize.Comma(int64(a.sched.Stats().Committed)))
}

// Scheduler exposes the scheduler, e.g. for metrics.
func (a *App) Scheduler() *deferral.Scheduler {
	return a.sched
}

// Init is called once when the program starts. Tiles are mounted here so the
// first frame shows placeholders before anything is released.
func (a *App) Init() tea.Cmd {
	a.mountAll()
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.pump != nil && a.pump.Update(msg) {
		return a, nil
	}
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Pause):
			a.sched.Pause()
			a.setStatus("Paused · %d queued", a.sched.Stats().Queued)
		case key.Matches(msg, a.keys.Resume):
			a.sched.Resume()
			a.setStatus("Resumed")
		case key.Matches(msg, a.keys.Mode):
			s := a.settings.Update(func(s *deferral.Settings) { s.Mode = s.Mode.Next() })
			a.setStatus("Mode → %s", s.Mode)
		case key.Matches(msg, a.keys.Slower):
			s := a.settings.Update(func(s *deferral.Settings) { s.Delay += delayStep })
			a.setStatus("Delay → %s", s.Delay)
		case key.Matches(msg, a.keys.Faster):
			s := a.settings.Update(func(s *deferral.Settings) { s.Delay -= delayStep })
			a.setStatus("Delay → %s", s.Delay)
		case key.Matches(msg, a.keys.BatchUp):
			s := a.settings.Update(func(s *deferral.Settings) { s.BatchSize++ })
			a.setStatus("Batch size → %s", batchLabel(s.BatchSize))
		case key.Matches(msg, a.keys.BatchDown):
			s := a.settings.Update(func(s *deferral.Settings) { s.BatchSize-- })
			a.setStatus("Batch size → %s", batchLabel(s.BatchSize))
		case key.Matches(msg, a.keys.Remount):
			if a.mounted {
				a.unmountAll()
				a.setStatus("Unmounted %d tiles", len(a.tiles))
			} else {
				a.mountAll()
				a.setStatus("Remounted %d tiles", len(a.tiles))
			}
		case key.Matches(msg, a.keys.Save):
			a.saveSettings()
		}
	}
	return a, nil
}

func (a *App) mountAll() {
	if a.mounted {
		return
	}
	a.mounted = true
	a.revealed = 0
	a.started = time.Now()
	for _, t := range a.tiles {
		if err := t.Mount(a.sched); err != nil {
			a.err = err
			return
		}
	}
}

// unmountAll cancels every tile unconditionally, revealed or not.
func (a *App) unmountAll() {
	if !a.mounted {
		return
	}
	a.mounted = false
	for _, t := range a.tiles {
		t.Unmount()
	}
	a.revealed = 0
}

func (a *App) onReveal(*deferred.Unit) {
	a.revealed++
	a.lastShow = time.Now()
	if a.revealed == len(a.tiles) {
		a.logInfo("All %d tiles revealed in %s", a.revealed, a.lastShow.Sub(a.started).Round(time.Millisecond))
	}
}

func (a *App) saveSettings() {
	s := a.settings.Settings()
	if err := a.config.SaveScheduler(s); err != nil {
		a.err = err
		a.logError("Saving settings failed: %v", err)
		return
	}
	a.err = nil
	a.setStatus("Saved %s to %s", describeSettings(s), filepath.Base(a.config.ProjectConfigPath()))
}

func (a *App) setStatus(format string, args ...any) {
	a.statusMsg = fmt.Sprintf(format, args...)
	a.logInfo("%s", a.statusMsg)
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
	a.refreshJournal()
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
	a.refreshJournal()
}

func (a *App) refreshJournal() {
	a.journal, a.journalTotal = a.logbook.Tail(journalLines)
}

// View renders the whole screen.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 80
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		Render("⬡ DEFERVIEW")
	sections := []string{
		header,
		a.renderStatusBar(),
		a.renderGrid(width - 4),
	}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	if a.err != nil {
		sections = append(sections, lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Render(a.err.Error()))
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(a.statusMsg)
	sections = append(sections, footer, a.help.View(a.keys))
	return strings.Join(sections, "\n")
}

func (a *App) renderStatusBar() string {
	s := a.settings.Settings()
	stats := a.sched.Stats()
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	value := lipgloss.NewStyle().Bold(true)
	field := func(name, v string) string {
		return label.Render(name+" ") + value.Render(v)
	}
	parts := []string{
		field("state", stats.State.String()),
		field("mode", s.Mode.String()),
		field("delay", s.Delay.String()),
		field("batch", batchLabel(s.BatchSize)),
		field("shown", fmt.Sprintf("%s/%s", humanize.Comma(int64(a.revealed)), humanize.Comma(int64(len(a.tiles))))),
		field("queued", humanize.Comma(int64(stats.Queued))),
		field("in flight", humanize.Comma(int64(stats.InFlight))),
		field("cancelled", humanize.Comma(int64(stats.Cancelled))),
	}
	return strings.Join(parts, "  ")
}

func (a *App) renderGrid(width int) string {
	if len(a.tiles) == 0 {
		return placeholderStyle.Render("no tiles")
	}
	cols := max(1, width)
	var (
		rows []string
		row  strings.Builder
	)
	for i, t := range a.tiles {
		row.WriteString(t.View())
		if (i+1)%cols == 0 {
			rows = append(rows, row.String())
			row.Reset()
		}
	}
	if row.Len() > 0 {
		rows = append(rows, row.String())
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(strings.Join(rows, "\n"))
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.journal, a.journalTotal
	if len(lines) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("JOURNAL · %s · %s entries", filepath.Base(a.logbook.Path()), humanize.Comma(int64(total))))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func describeSettings(s deferral.Settings) string {
	return fmt.Sprintf("mode=%s delay=%s batch=%s", s.Mode, s.Delay, batchLabel(s.BatchSize))
}

func batchLabel(n int) string {
	if n <= 0 {
		return "all"
	}
	return humanize.Comma(int64(n))
}
