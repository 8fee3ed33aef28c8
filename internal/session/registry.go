package session

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/Pox4ever/ChatTwo-sub000/internal/dmerr"
	"github.com/Pox4ever/ChatTwo-sub000/internal/history"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
)

// Registry is the concurrently-accessed map from identity to session state.
// One mutex guards every history/tab/window transition, so the logically
// separate maps of the original design can never be observed half-converted.
// Registry operations are near-instant; the only I/O (history hydration)
// runs on its own goroutine outside the lock.
//
// Identities index two ways: a name bucket (lowercased name, resolved inside
// the bucket with ident.Equal, so same-name different-world correspondents
// coexist) and a stable-id map for events that carry only the id.
type Registry struct {
	mu     sync.Mutex
	byName map[string][]*Session
	byID   map[uint64]*Session

	host         PresentationHost
	source       HydrationSource
	geom         GeometryRecorder
	hydrateCount int
	log          *slog.Logger

	hydrations sync.WaitGroup
}

// New creates a Registry. source and geom may be nil (no hydration, no
// geometry persistence); logger may be nil.
func New(host PresentationHost, source HydrationSource, geom GeometryRecorder, hydrateCount int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byName:       make(map[string][]*Session),
		byID:         make(map[uint64]*Session),
		host:         host,
		source:       source,
		geom:         geom,
		hydrateCount: hydrateCount,
		log:          logger,
	}
}

// lookupLocked finds the session for an equal identity, adopting a newly
// learned stable id onto an existing name-keyed session.
func (r *Registry) lookupLocked(id ident.PlayerIdentity) *Session {
	if id.StableID != 0 {
		if s, ok := r.byID[id.StableID]; ok {
			return s
		}
	}
	for _, s := range r.byName[id.NameKey()] {
		if ident.Equal(s.Identity, id) {
			if id.StableID != 0 && s.Identity.StableID == 0 {
				s.Identity.StableID = id.StableID
				r.byID[id.StableID] = s
			}
			return s
		}
	}
	return nil
}

func (r *Registry) getOrCreateLocked(id ident.PlayerIdentity) *Session {
	if s := r.lookupLocked(id); s != nil {
		return s
	}
	s := &Session{Identity: id, History: history.New(id)}
	r.byName[id.NameKey()] = append(r.byName[id.NameKey()], s)
	if id.StableID != 0 {
		r.byID[id.StableID] = s
	}
	return s
}

// GetOrCreateHistory returns the History for the identity, creating the
// session record lazily. Concurrent first calls for one identity return the
// same instance.
func (r *Registry) GetOrCreateHistory(id ident.PlayerIdentity) *history.History {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(id).History
}

// OpenTab opens (or returns the already-open presentation of) a session as a
// tab. Idempotent: a second call with no intervening close returns the same
// presentation. If another presentation is already open it is returned
// unchanged; at most one surface is primary per identity.
func (r *Registry) OpenTab(id ident.PlayerIdentity) (*Presentation, error) {
	return r.open(id, KindTab)
}

// OpenWindow is OpenTab's floating-window counterpart.
func (r *Registry) OpenWindow(id ident.PlayerIdentity) (*Presentation, error) {
	return r.open(id, KindWindow)
}

func (r *Registry) open(id ident.PlayerIdentity, kind PresentationKind) (*Presentation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getOrCreateLocked(id)
	if s.Presentation != nil && !r.host.Alive(s.Presentation.Handle) {
		// Closed through a native control; reconcile on demand.
		if s.Presentation.Kind == KindWindow {
			r.recordWindowLocked(s, false)
		}
		s.Presentation = nil
	}
	if s.Presentation != nil {
		return s.Presentation, nil
	}

	var handle PresentationHandle
	var err error
	op := "OpenTab"
	if kind == KindWindow {
		op = "OpenWindow"
		handle, err = r.host.CreateWindow(s.Identity)
	} else {
		handle, err = r.host.CreateTab(s.Identity)
	}
	if err != nil {
		err = dmerr.New(dmerr.Presentation, op, s.Identity.Display(), err)
		dmerr.Soft(r.log, err)
		return nil, err
	}

	s.Presentation = &Presentation{Kind: kind, Handle: handle}
	if kind == KindWindow {
		r.recordWindowLocked(s, true)
	}
	r.maybeHydrateLocked(s)
	r.log.Debug("session opened", "identity", s.Identity.Display(), "kind", kind.String())
	return s.Presentation, nil
}

// ConvertTabToWindow atomically replaces an open tab with a window. The new
// surface is created before the old one is destroyed, all under the registry
// lock, so either the conversion fully succeeds or the tab remains open and
// unchanged. Message content needs no copying: both surfaces render the same
// History.
func (r *Registry) ConvertTabToWindow(id ident.PlayerIdentity) error {
	return r.convert(id, KindTab, KindWindow)
}

// ConvertWindowToTab is the symmetric conversion.
func (r *Registry) ConvertWindowToTab(id ident.PlayerIdentity) error {
	return r.convert(id, KindWindow, KindTab)
}

func (r *Registry) convert(id ident.PlayerIdentity, from, to PresentationKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookupLocked(id)
	if s == nil || s.Presentation == nil || s.Presentation.Kind != from {
		err := dmerr.New(dmerr.SessionState, "Convert", id.Display(),
			errors.New("no open "+from.String()))
		dmerr.Soft(r.log, err)
		return err
	}

	var handle PresentationHandle
	var err error
	if to == KindWindow {
		handle, err = r.host.CreateWindow(s.Identity)
	} else {
		handle, err = r.host.CreateTab(s.Identity)
	}
	if err != nil {
		// Old presentation stays intact.
		err = dmerr.New(dmerr.Presentation, "Convert", s.Identity.Display(), err)
		dmerr.Soft(r.log, err)
		return err
	}

	old := s.Presentation
	s.Presentation = &Presentation{Kind: to, Handle: handle}
	r.host.Destroy(old.Handle)
	r.recordWindowLocked(s, to == KindWindow)
	r.log.Debug("session converted", "identity", s.Identity.Display(), "from", from.String(), "to", to.String())
	return nil
}

// CloseTab closes an open tab presentation. No-op when no tab is open. The
// History is retained either way.
func (r *Registry) CloseTab(id ident.PlayerIdentity) {
	r.close(id, KindTab)
}

// CloseWindow closes an open window presentation.
func (r *Registry) CloseWindow(id ident.PlayerIdentity) {
	r.close(id, KindWindow)
}

func (r *Registry) close(id ident.PlayerIdentity, kind PresentationKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookupLocked(id)
	if s == nil || s.Presentation == nil || s.Presentation.Kind != kind {
		return
	}
	r.host.Destroy(s.Presentation.Handle)
	s.Presentation = nil
	if kind == KindWindow {
		r.recordWindowLocked(s, false)
	}
	r.log.Debug("session closed", "identity", s.Identity.Display(), "kind", kind.String())
}

// HasSession reports whether a presentation is currently tracked for the
// identity and still acknowledged by the host.
func (r *Registry) HasSession(id ident.PlayerIdentity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookupLocked(id)
	return s != nil && s.Presentation != nil && r.host.Alive(s.Presentation.Handle)
}

// FindByName returns every tracked session whose identity matches the text
// by name alone, ignoring world and stable id.
func (r *Registry) FindByName(text string) []*Session {
	name := ident.Normalize(text)
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for _, bucket := range r.byName {
		for _, s := range bucket {
			if strings.EqualFold(s.Identity.Name, name) {
				out = append(out, s)
			}
		}
	}
	return out
}

// Sessions returns a snapshot of all tracked sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for _, bucket := range r.byName {
		out = append(out, bucket...)
	}
	return out
}

// MostRecentlyActive returns the tracked session with the newest history
// activity, or nil when none has any.
func (r *Registry) MostRecentlyActive() *Session {
	var best *Session
	for _, s := range r.Sessions() {
		if s.History.Len() == 0 {
			continue
		}
		if best == nil || s.History.LastActivity().After(best.History.LastActivity()) {
			best = s
		}
	}
	return best
}

// MostRecentlyActiveOpen returns the session with the newest history
// activity among those whose presentation is tracked and still acknowledged
// by the host, or nil when no session is open.
func (r *Registry) MostRecentlyActiveOpen() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *Session
	for _, bucket := range r.byName {
		for _, s := range bucket {
			if s.Presentation == nil || !r.host.Alive(s.Presentation.Handle) {
				continue
			}
			if best == nil || s.History.LastActivity().After(best.History.LastActivity()) {
				best = s
			}
		}
	}
	return best
}

// Reconcile drops presentations the host no longer acknowledges, e.g. a
// window closed through a native control outside the registry's own close
// path. Idempotent; never removes a History.
func (r *Registry) Reconcile() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bucket := range r.byName {
		for _, s := range bucket {
			if s.Presentation == nil || r.host.Alive(s.Presentation.Handle) {
				continue
			}
			kind := s.Presentation.Kind
			s.Presentation = nil
			if kind == KindWindow {
				r.recordWindowLocked(s, false)
			}
			r.log.Debug("stale presentation reconciled", "identity", s.Identity.Display(), "kind", kind.String())
		}
	}
}

// recordWindowLocked persists the open flag for a floating window.
func (r *Registry) recordWindowLocked(s *Session, open bool) {
	if r.geom == nil {
		return
	}
	r.geom.SetOpen(s.Identity.Name, s.Identity.World, open)
}

// maybeHydrateLocked schedules the one-time pull of stored messages for a
// session. Runs off the draw pass; a failure logs and leaves the session
// usable with live messages only.
func (r *Registry) maybeHydrateLocked(s *Session) {
	if s.hydrated || r.source == nil || r.hydrateCount <= 0 {
		return
	}
	s.hydrated = true

	id := s.Identity
	h := s.History
	r.hydrations.Add(1)
	go func() {
		defer r.hydrations.Done()
		ms, err := r.source.RecentFor(id, r.hydrateCount)
		if err != nil {
			dmerr.Soft(r.log, dmerr.New(dmerr.Persistence, "Hydrate", id.Display(), err))
			return
		}
		h.MergeHydrated(ms)
	}()
}

// WaitHydration blocks until in-flight hydrations finish. For shutdown and
// tests.
func (r *Registry) WaitHydration() {
	r.hydrations.Wait()
}
