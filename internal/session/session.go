// Package session tracks direct-message sessions: the pairing of one
// conversation history with at most one open presentation (an embedded tab
// or a floating window). The registry owns the tab↔window conversion
// protocol and the session lifecycle; rendering belongs to the presentation
// host, which this package only drives through a narrow interface.
package session

import (
	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/history"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
)

// PresentationKind distinguishes the two equivalent on-screen presentations.
type PresentationKind uint8

const (
	KindTab PresentationKind = iota
	KindWindow
)

// String returns a short label for logs.
func (k PresentationKind) String() string {
	if k == KindWindow {
		return "window"
	}
	return "tab"
}

// PresentationHandle is an opaque surface id assigned by the host.
type PresentationHandle uint64

// Presentation is the open on-screen surface of a session. It holds no
// message content: presentations render snapshots of the History, so a
// conversion cannot lose or duplicate messages.
type Presentation struct {
	Kind   PresentationKind
	Handle PresentationHandle
}

// Session pairs one identity's History with its presentation state. A nil
// Presentation means closed; the History survives regardless.
type Session struct {
	Identity     ident.PlayerIdentity
	History      *history.History
	Presentation *Presentation

	hydrated bool
}

// PresentationHost is the external presentation layer. Implementations must
// return fast and never panic into the caller; creation failures are
// reported as errors and leave the registry unchanged.
type PresentationHost interface {
	CreateTab(id ident.PlayerIdentity) (PresentationHandle, error)
	CreateWindow(id ident.PlayerIdentity) (PresentationHandle, error)
	// Destroy releases a surface. Must tolerate already-destroyed handles.
	Destroy(h PresentationHandle)
	// Alive reports whether the host still acknowledges the surface. Used
	// by reconciliation to drop entries closed through native controls.
	Alive(h PresentationHandle) bool
}

// HydrationSource supplies stored messages when a session is first opened in
// a process lifetime. Queried off the draw pass.
type HydrationSource interface {
	RecentFor(id ident.PlayerIdentity, n int) ([]chat.Message, error)
}

// GeometryRecorder persists the open/closed flag for floating windows.
type GeometryRecorder interface {
	SetOpen(name string, world uint32, open bool)
}
