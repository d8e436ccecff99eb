// Package deferred binds a Bubble Tea model to a deferral controller. A Unit
// shows a lightweight fallback until the controller releases it, then
// switches to the wrapped model for good.
package deferred

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tevino/abool"

	"github.com/kingrea/deferview/internal/deferral"
	"github.com/kingrea/deferview/internal/paint"
)

// ErrNoController is returned by Mount when neither a controller nor a
// standalone host is available.
var ErrNoController = errors.New("deferred: no controller and no standalone host")

// Unit is one deferred piece of UI.
type Unit struct {
	content  tea.Model
	fallback tea.Model
	onReveal func(*Unit)

	standaloneHost  paint.Host
	standaloneDelay time.Duration

	visible *abool.AtomicBool

	mu      sync.Mutex
	ctrl    deferral.Controller
	id      deferral.ID
	mounted bool
	gen     uint64
}

// Option customizes a Unit.
type Option func(*Unit)

// WithFallback replaces the default spinner shown until reveal.
func WithFallback(m tea.Model) Option {
	return func(u *Unit) {
		if m != nil {
			u.fallback = m
		}
	}
}

// OnReveal is called on the host goroutine right after the unit turns
// visible.
func OnReveal(fn func(*Unit)) Option {
	return func(u *Unit) {
		u.onReveal = fn
	}
}

// WithStandalone lets Mount(nil) time the unit on its own through host.
func WithStandalone(host paint.Host, delay time.Duration) Option {
	return func(u *Unit) {
		u.standaloneHost = host
		u.standaloneDelay = delay
	}
}

// New wraps content. The unit is hidden and unmounted until Mount.
func New(content tea.Model, opts ...Option) *Unit {
	u := &Unit{
		content:  content,
		fallback: spinnerFallback{spinner.New(spinner.WithSpinner(spinner.Dot))},
		visible:  abool.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

// Mount registers the unit with ctrl. A nil ctrl falls back to a standalone
// controller on the host given to WithStandalone. Mounting a mounted unit
// does nothing.
func (u *Unit) Mount(ctrl deferral.Controller) error {
	if ctrl == nil {
		if u.standaloneHost == nil {
			return ErrNoController
		}
		ctrl = deferral.NewStandalone(u.standaloneHost, u.standaloneDelay)
	}

	u.mu.Lock()
	if u.mounted {
		u.mu.Unlock()
		return nil
	}
	u.gen++
	gen := u.gen
	u.ctrl = ctrl
	u.mounted = true
	u.visible.UnSet()
	u.mu.Unlock()

	id := ctrl.Register(func() { u.reveal(gen) })

	u.mu.Lock()
	if u.gen == gen {
		u.id = id
	}
	u.mu.Unlock()
	return nil
}

func (u *Unit) reveal(gen uint64) {
	u.mu.Lock()
	if !u.mounted || u.gen != gen {
		u.mu.Unlock()
		return
	}
	ctrl := u.ctrl
	u.mu.Unlock()

	if !u.visible.SetToIf(false, true) {
		return
	}
	if u.onReveal != nil {
		u.onReveal(u)
	}
	ctrl.Advance()
}

// Unmount cancels the registration, whether or not the unit was revealed,
// and hides it again.
func (u *Unit) Unmount() {
	u.mu.Lock()
	if !u.mounted {
		u.mu.Unlock()
		return
	}
	ctrl, id := u.ctrl, u.id
	u.mounted = false
	u.ctrl = nil
	u.id = 0
	u.gen++
	u.mu.Unlock()

	u.visible.UnSet()
	ctrl.Cancel(id)
}

// Mounted reports whether the unit is registered with a controller.
func (u *Unit) Mounted() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.mounted
}

// Visible reports whether the controller has released the unit.
func (u *Unit) Visible() bool {
	return u.visible.IsSet()
}

// ID returns the registration id, or zero when unmounted.
func (u *Unit) ID() deferral.ID {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.id
}

// Content returns the wrapped model.
func (u *Unit) Content() tea.Model {
	return u.content
}

// Init implements tea.Model.
func (u *Unit) Init() tea.Cmd {
	return tea.Batch(u.fallback.Init(), u.content.Init())
}

// Update implements tea.Model. Messages go to the fallback until the unit is
// visible and to the content afterwards.
func (u *Unit) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if u.Visible() {
		u.content, cmd = u.content.Update(msg)
	} else {
		u.fallback, cmd = u.fallback.Update(msg)
	}
	return u, cmd
}

// View implements tea.Model.
func (u *Unit) View() string {
	if u.Visible() {
		return u.content.View()
	}
	return u.fallback.View()
}

// spinnerFallback adapts spinner.Model to tea.Model.
type spinnerFallback struct {
	spinner.Model
}

func (s spinnerFallback) Init() tea.Cmd {
	return s.Tick
}

func (s spinnerFallback) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := s.Model.Update(msg)
	return spinnerFallback{m}, cmd
}

var _ tea.Model = (*Unit)(nil)
