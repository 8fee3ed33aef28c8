// Package history keeps the per-correspondent conversation log: an ordered,
// append-only sequence of messages with unread and activity bookkeeping. A
// History outlives any tab or window displaying it and is the single source
// of truth for message content; presentations render snapshots of it rather
// than keeping copies.
package history

import (
	"sort"
	"time"

	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
)

// History is the conversation log for one identity. All mutation is
// serialized behind a one-slot semaphore so readers on the draw pass can
// attempt a bounded-wait acquire instead of blocking.
type History struct {
	sem      chan struct{}
	identity ident.PlayerIdentity

	msgs         []chat.Message
	seen         map[string]struct{}
	unread       uint32
	lastActivity time.Time
}

// New creates an empty History for the identity.
func New(id ident.PlayerIdentity) *History {
	return &History{
		sem:      make(chan struct{}, 1),
		identity: id,
		seen:     make(map[string]struct{}),
	}
}

func (h *History) lock()   { h.sem <- struct{}{} }
func (h *History) unlock() { <-h.sem }

// tryLock acquires the semaphore, giving up after wait.
func (h *History) tryLock(wait time.Duration) bool {
	select {
	case h.sem <- struct{}{}:
		return true
	default:
	}
	if wait <= 0 {
		return false
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case h.sem <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// Identity returns the identity this log belongs to.
func (h *History) Identity() ident.PlayerIdentity { return h.identity }

// Append adds a message to the log, updates the activity timestamp and, for
// incoming messages, the unread count.
func (h *History) Append(m chat.Message, incoming bool) {
	h.lock()
	defer h.unlock()
	h.msgs = append(h.msgs, m)
	if m.ID != "" {
		h.seen[m.ID] = struct{}{}
	}
	if m.Time.After(h.lastActivity) {
		h.lastActivity = m.Time
	}
	if incoming {
		h.unread++
	}
}

// MarkRead resets the unread count to zero.
func (h *History) MarkRead() {
	h.lock()
	defer h.unlock()
	h.unread = 0
}

// Unread returns the unread count.
func (h *History) Unread() uint32 {
	h.lock()
	defer h.unlock()
	return h.unread
}

// LastActivity returns the timestamp of the most recent append.
func (h *History) LastActivity() time.Time {
	h.lock()
	defer h.unlock()
	return h.lastActivity
}

// Len returns the number of stored messages.
func (h *History) Len() int {
	h.lock()
	defer h.unlock()
	return len(h.msgs)
}

// Recent returns the n most recently added messages, oldest-first. The slice
// is a copy; callers may hold it across frames.
func (h *History) Recent(n int) []chat.Message {
	h.lock()
	defer h.unlock()
	return h.recentLocked(n)
}

// RecentWithin is Recent with a bounded lock wait for the draw pass. When
// the lock cannot be acquired within wait it returns (nil, false) and the
// caller renders nothing for this frame.
func (h *History) RecentWithin(n int, wait time.Duration) ([]chat.Message, bool) {
	if !h.tryLock(wait) {
		return nil, false
	}
	defer h.unlock()
	return h.recentLocked(n), true
}

func (h *History) recentLocked(n int) []chat.Message {
	if n <= 0 || len(h.msgs) == 0 {
		return nil
	}
	if n > len(h.msgs) {
		n = len(h.msgs)
	}
	out := make([]chat.Message, n)
	copy(out, h.msgs[len(h.msgs)-n:])
	return out
}

// MergeHydrated inserts store rows the log has not seen yet, keeping the
// whole sequence ordered by timestamp. Live messages that arrived before
// hydration finished are preserved; rows already appended (matched by id)
// are skipped. Idempotent, and does not touch unread or activity state.
func (h *History) MergeHydrated(ms []chat.Message) {
	if len(ms) == 0 {
		return
	}
	h.lock()
	defer h.unlock()
	added := false
	for _, m := range ms {
		if m.ID != "" {
			if _, dup := h.seen[m.ID]; dup {
				continue
			}
			h.seen[m.ID] = struct{}{}
		}
		h.msgs = append(h.msgs, m)
		added = true
	}
	if added {
		sort.SliceStable(h.msgs, func(i, j int) bool {
			return h.msgs[i].Time.Before(h.msgs[j].Time)
		})
	}
}

// Clear discards all messages and resets the unread count. Explicit user
// action only; the registry never calls this.
func (h *History) Clear() {
	h.lock()
	defer h.unlock()
	h.msgs = nil
	h.seen = make(map[string]struct{})
	h.unread = 0
}
