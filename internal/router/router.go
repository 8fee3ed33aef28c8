// Package router consumes classified chat events and drives the session
// registry: incoming tells land in the right conversation, outgoing tells
// record an attribution target, and delivery errors are correlated back to
// the last outgoing target. Every entry point fails soft; nothing here may
// panic or return into the draw pass with an error it hasn't logged.
package router

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/classify"
	"github.com/Pox4ever/ChatTwo-sub000/internal/config"
	"github.com/Pox4ever/ChatTwo-sub000/internal/dmerr"
	"github.com/Pox4ever/ChatTwo-sub000/internal/history"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
	"github.com/Pox4ever/ChatTwo-sub000/internal/session"
)

// Router dispatches raw events to sessions.
type Router struct {
	reg *session.Registry
	cls *classify.Classifier
	cfg *config.Config
	log *slog.Logger

	mu           sync.Mutex
	lastOutgoing *ident.PlayerIdentity
	focused      func() (ident.PlayerIdentity, bool)
}

// New creates a Router. logger may be nil.
func New(reg *session.Registry, cls *classify.Classifier, cfg *config.Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{reg: reg, cls: cls, cfg: cfg, log: logger}
}

// SetFocused registers the host callback reporting which conversation
// currently has input focus. A message landing in the focused conversation is
// read the moment it appears, so no badge accrues on the surface the user is
// looking at. The callback is invoked from routing goroutines and must be
// safe for concurrent use.
func (r *Router) SetFocused(fn func() (ident.PlayerIdentity, bool)) {
	r.mu.Lock()
	r.focused = fn
	r.mu.Unlock()
}

// markReadIfFocused clears the unread count when h belongs to the focused
// conversation.
func (r *Router) markReadIfFocused(h *history.History) {
	r.mu.Lock()
	fn := r.focused
	r.mu.Unlock()
	if fn == nil {
		return
	}
	if f, ok := fn(); ok && r.reg.GetOrCreateHistory(f) == h {
		h.MarkRead()
	}
}

// RouteIncoming handles a raw event from the host transport. Incoming tells
// append to the correspondent's history and, when auto-open is enabled and
// no session is open, open one in the configured default presentation.
// Possible tell errors are correlated to the last outgoing target. Anything
// else is ignored.
func (r *Router) RouteIncoming(ev chat.Event) {
	c := r.cls.Classify(ev)
	switch c.Kind {
	case classify.IncomingTell:
		r.deliverIncoming(c.Sender, ev)
	case classify.PossibleTellError:
		r.RouteError(ev)
	default:
	}
}

func (r *Router) deliverIncoming(sender ident.PlayerIdentity, ev chat.Event) {
	h := r.reg.GetOrCreateHistory(sender)
	m := chat.MessageFromEvent(ev, chat.KindTellIncoming, sender.Display(), ev.StableID)
	h.Append(m, true)
	r.markReadIfFocused(h)

	if r.cfg.AutoOpen && !r.reg.HasSession(sender) {
		r.openDefault(sender)
	}
}

// RouteOutgoing records target as the most recent outgoing target for later
// error correlation (no expiry; it persists until overwritten or an error
// claims it) and appends the outgoing message to the target's history.
func (r *Router) RouteOutgoing(target ident.PlayerIdentity, ev chat.Event) {
	r.mu.Lock()
	t := target
	r.lastOutgoing = &t
	r.mu.Unlock()

	h := r.reg.GetOrCreateHistory(target)
	m := chat.MessageFromEvent(ev, chat.KindTellOutgoing, "You", target.StableID)
	h.Append(m, false)
}

// RouteError attributes a delivery failure to the most recent outgoing
// target, if the text looks like a tell error and a target is tracked.
// Attribution consumes the target so a later unrelated error is not pinned
// on the same correspondent.
func (r *Router) RouteError(ev chat.Event) {
	if !classify.LooksLikeTellError(ev.ContentText) {
		return
	}

	r.mu.Lock()
	target := r.lastOutgoing
	r.lastOutgoing = nil
	r.mu.Unlock()

	if target == nil {
		r.log.Debug("tell error with no outgoing target", "text", ev.ContentText)
		return
	}

	h := r.reg.GetOrCreateHistory(*target)
	m := chat.MessageFromEvent(ev, chat.KindError, "", 0)
	h.Append(m, true)
	r.markReadIfFocused(h)
}

// FindOrCreateByNameAndWorld is the entry point for explicit user actions
// (command palette, context menu) that bypass message classification.
func (r *Router) FindOrCreateByNameAndWorld(name string, world uint32) ident.PlayerIdentity {
	id := ident.New(name, world, 0)
	r.reg.GetOrCreateHistory(id)
	return id
}

// SurfaceFailure inserts a system-styled error message into the most
// relevant open session; with none open the failure is logged only.
func (r *Router) SurfaceFailure(err error) {
	if err == nil {
		return
	}
	s := r.reg.MostRecentlyActiveOpen()
	if s == nil {
		dmerr.Soft(r.log, err)
		return
	}
	m := chat.NewMessage(chat.KindError, "", err.Error(), time.Time{}, 0)
	s.History.Append(m, false)
}

// openDefault opens a session in the configured default presentation,
// swallowing presentation failures (the registry already logged them).
func (r *Router) openDefault(id ident.PlayerIdentity) {
	var err error
	if r.cfg.DefaultMode == config.ModeWindow {
		_, err = r.reg.OpenWindow(id)
	} else {
		_, err = r.reg.OpenTab(id)
	}
	_ = err
}
