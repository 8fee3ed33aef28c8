// Package ui is the terminal presentation layer for direct-message
// sessions: a tab strip plus an optional floating window, rendered with
// bubbletea. It implements session.PresentationHost; surfaces hold no
// message content and render bounded-wait snapshots of each conversation's
// History every frame, so a slow or contended history costs one frame, not
// a stall.
package ui

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/command"
	"github.com/Pox4ever/ChatTwo-sub000/internal/config"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
	"github.com/Pox4ever/ChatTwo-sub000/internal/router"
	"github.com/Pox4ever/ChatTwo-sub000/internal/session"
)

// historyWait bounds how long a frame may wait on a history lock.
const historyWait = 3 * time.Millisecond

// renderDepth is how many messages a surface renders.
const renderDepth = 200

// Transport delivers outgoing tells to the game server. Owned by the host
// environment, which also writes the persisted chat log; SendTell returns the
// message id it logged the tell under so the live copy shares it.
type Transport interface {
	SendTell(target ident.PlayerIdentity, text string) (string, error)
}

// surface is one host-acknowledged presentation.
type surface struct {
	handle session.PresentationHandle
	kind   session.PresentationKind
	id     ident.PlayerIdentity
}

// TickMsg drives reconciliation and redraws.
type TickMsg time.Time

// Model is the bubbletea model for the overlay.
type Model struct {
	// Surfaces are created by the registry from arbitrary goroutines, so
	// host state has its own lock independent of the tea loop.
	mu       sync.Mutex
	next     session.PresentationHandle
	surfaces map[session.PresentationHandle]*surface
	tabOrder []session.PresentationHandle
	window   session.PresentationHandle // 0 = no floating window
	active   int

	reg       *session.Registry
	rt        *router.Router
	runner    *command.Runner
	transport Transport
	cfg       *config.Config
	log       *slog.Logger

	input  textinput.Model
	status string
	width  int
	height int
}

// New creates the presentation model. The registry, router, and command
// runner are attached afterwards with Bind, since they need the host to
// exist first.
func New(cfg *config.Config, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	ti := textinput.New()
	ti.Placeholder = "message, or /dm [name]"
	ti.CharLimit = 500
	ti.Focus()
	return &Model{
		surfaces: make(map[session.PresentationHandle]*surface),
		cfg:      cfg,
		log:      logger,
		input:    ti,
	}
}

// Bind attaches the session layer built on top of this host.
func (m *Model) Bind(reg *session.Registry, rt *router.Router, runner *command.Runner, transport Transport) {
	m.reg = reg
	m.rt = rt
	m.runner = runner
	m.transport = transport
	rt.SetFocused(m.focusedIdentity)
}

// CreateTab registers a new tab surface. Never blocks; returns immediately.
func (m *Model) CreateTab(id ident.PlayerIdentity) (session.PresentationHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.surfaces[m.next] = &surface{handle: m.next, kind: session.KindTab, id: id}
	m.tabOrder = append(m.tabOrder, m.next)
	return m.next, nil
}

// CreateWindow registers the floating window surface. Only one floating
// window is shown at a time; a second request is refused so the registry
// keeps the caller's current presentation.
func (m *Model) CreateWindow(id ident.PlayerIdentity) (session.PresentationHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.window != 0 {
		return 0, errFloatingWindowBusy
	}
	m.next++
	m.surfaces[m.next] = &surface{handle: m.next, kind: session.KindWindow, id: id}
	m.window = m.next
	return m.next, nil
}

// Destroy releases a surface. Tolerates unknown handles.
func (m *Model) Destroy(h session.PresentationHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surfaces[h]
	if !ok {
		return
	}
	delete(m.surfaces, h)
	if s.kind == session.KindWindow {
		if m.window == h {
			m.window = 0
		}
		return
	}
	for i, th := range m.tabOrder {
		if th == h {
			m.tabOrder = append(m.tabOrder[:i], m.tabOrder[i+1:]...)
			break
		}
	}
	if m.active >= len(m.tabOrder) && m.active > 0 {
		m.active = len(m.tabOrder) - 1
	}
}

// Alive reports whether the host still acknowledges the surface.
func (m *Model) Alive(h session.PresentationHandle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.surfaces[h]
	return ok
}

// Init schedules the reconciliation tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update handles tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-4)
		return m, nil

	case TickMsg:
		if m.reg != nil {
			m.reg.Reconcile()
		}
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+n":
			m.cycleTab(1)
			return m, nil
		case "ctrl+p":
			m.cycleTab(-1)
			return m, nil
		case "ctrl+w":
			m.toggleWindow()
			return m, nil
		case "ctrl+x":
			m.closeActive()
			return m, nil
		case "enter":
			m.submit()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// focusedIdentity returns the identity of the surface input goes to: the
// floating window when open, else the active tab.
func (m *Model) focusedIdentity() (ident.PlayerIdentity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.window != 0 {
		return m.surfaces[m.window].id, true
	}
	if len(m.tabOrder) == 0 {
		return ident.PlayerIdentity{}, false
	}
	return m.surfaces[m.tabOrder[m.active]].id, true
}

func (m *Model) cycleTab(delta int) {
	m.mu.Lock()
	if n := len(m.tabOrder); n > 0 {
		m.active = ((m.active+delta)%n + n) % n
	}
	m.mu.Unlock()
	m.markFocusedRead()
}

// markFocusedRead clears the unread badge of the surface now in focus.
func (m *Model) markFocusedRead() {
	if m.reg == nil {
		return
	}
	if id, ok := m.focusedIdentity(); ok {
		m.reg.GetOrCreateHistory(id).MarkRead()
	}
}

// toggleWindow converts the focused presentation to its other form.
func (m *Model) toggleWindow() {
	if m.reg == nil {
		return
	}
	id, ok := m.focusedIdentity()
	if !ok {
		return
	}
	m.mu.Lock()
	windowFocused := m.window != 0
	m.mu.Unlock()
	if windowFocused {
		if err := m.reg.ConvertWindowToTab(id); err != nil {
			m.status = "could not convert window"
		}
		return
	}
	if err := m.reg.ConvertTabToWindow(id); err != nil {
		m.status = "could not convert tab"
	}
}

func (m *Model) closeActive() {
	if m.reg == nil {
		return
	}
	id, ok := m.focusedIdentity()
	if !ok {
		return
	}
	m.mu.Lock()
	windowFocused := m.window != 0
	m.mu.Unlock()
	if windowFocused {
		m.reg.CloseWindow(id)
	} else {
		m.reg.CloseTab(id)
	}
}

// submit sends the input line: /dm invokes the command surface, anything
// else goes out as a tell to the focused correspondent.
func (m *Model) submit() {
	text := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if text == "" {
		return
	}

	if text == "/dm" || strings.HasPrefix(text, "/dm ") {
		m.runCommand(strings.TrimPrefix(text, "/dm"))
		return
	}

	target, ok := m.focusedIdentity()
	if !ok {
		m.status = "no conversation focused"
		return
	}
	ev := chat.Event{Channel: chat.ChannelTellOutgoing, ContentText: text, Time: time.Now()}
	if m.transport != nil {
		msgID, err := m.transport.SendTell(target, text)
		if err != nil {
			m.status = "send failed"
			m.log.Warn("tell send failed", "target", target.Display(), "error", err)
			return
		}
		ev.ID = msgID
	}
	m.rt.RouteOutgoing(target, ev)
}

func (m *Model) runCommand(arg string) {
	if m.runner == nil {
		return
	}
	res := m.runner.Run(arg)
	switch res.Kind {
	case command.Opened:
		m.focusIdentity(res.Identity)
		m.status = ""
	case command.Disambiguation:
		m.status = "did you mean: " + strings.Join(res.Candidates, ", ")
	case command.NoSessions:
		m.status = "no conversations yet"
	case command.NotLoggedIn:
		m.status = "not logged in"
	case command.Failed:
		m.status = "could not open " + res.Identity.Display()
	}
}

// focusIdentity moves tab focus to the surface showing id, if it is a tab.
func (m *Model) focusIdentity(id ident.PlayerIdentity) {
	m.mu.Lock()
	for i, h := range m.tabOrder {
		if ident.Equal(m.surfaces[h].id, id) {
			m.active = i
			break
		}
	}
	m.mu.Unlock()
	m.markFocusedRead()
}
