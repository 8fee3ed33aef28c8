package history

import (
	"testing"
	"time"

	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
)

func msgAt(id, content string, ts time.Time) chat.Message {
	return chat.Message{ID: id, Sender: "Foo", Content: content, Time: ts, Kind: chat.KindTellIncoming}
}

func TestAppendAndRecent(t *testing.T) {
	h := New(ident.PlayerIdentity{Name: "Foo"})
	base := time.Now()
	for i, content := range []string{"one", "two", "three"} {
		h.Append(msgAt(string(rune('a'+i)), content, base.Add(time.Duration(i)*time.Second)), true)
	}

	got := h.Recent(2)
	if len(got) != 2 || got[0].Content != "two" || got[1].Content != "three" {
		t.Fatalf("Recent(2) = %v", got)
	}
	if all := h.Recent(10); len(all) != 3 || all[0].Content != "one" {
		t.Fatalf("Recent(10) = %v", all)
	}
	if h.Len() != 3 {
		t.Fatalf("Len = %d", h.Len())
	}
	if got := h.LastActivity(); !got.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("LastActivity = %v", got)
	}
}

func TestUnreadBookkeeping(t *testing.T) {
	h := New(ident.PlayerIdentity{Name: "Foo"})
	h.Append(msgAt("a", "hi", time.Now()), true)
	h.Append(msgAt("b", "reply", time.Now()), false)
	if h.Unread() != 1 {
		t.Fatalf("Unread = %d, want 1", h.Unread())
	}
	h.MarkRead()
	if h.Unread() != 0 {
		t.Fatalf("Unread after MarkRead = %d, want 0", h.Unread())
	}
	h.Append(msgAt("c", "again", time.Now()), true)
	if h.Unread() != 1 {
		t.Fatalf("Unread after one incoming = %d, want exactly 1", h.Unread())
	}
}

func TestRecentWithin_FailsSoftUnderContention(t *testing.T) {
	h := New(ident.PlayerIdentity{Name: "Foo"})
	h.Append(msgAt("a", "hi", time.Now()), true)

	// Hold the lock so the draw-pass read cannot acquire it.
	h.lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if ms, ok := h.RecentWithin(10, 5*time.Millisecond); ok || ms != nil {
			t.Errorf("RecentWithin under held lock = %v, %v, want nil, false", ms, ok)
		}
	}()
	<-done
	h.unlock()

	if ms, ok := h.RecentWithin(10, 5*time.Millisecond); !ok || len(ms) != 1 {
		t.Fatalf("RecentWithin after release = %v, %v", ms, ok)
	}
}

func TestMergeHydrated(t *testing.T) {
	h := New(ident.PlayerIdentity{Name: "Foo"})
	base := time.Now()

	// A live message arrives before hydration completes.
	live := msgAt("live", "fresh", base)
	h.Append(live, true)

	stored := []chat.Message{
		msgAt("old1", "older", base.Add(-2*time.Minute)),
		msgAt("old2", "old", base.Add(-time.Minute)),
		msgAt("live", "fresh", base), // already present, must not duplicate
	}
	h.MergeHydrated(stored)
	h.MergeHydrated(stored) // idempotent

	got := h.Recent(10)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %v", len(got), got)
	}
	if got[0].ID != "old1" || got[1].ID != "old2" || got[2].ID != "live" {
		t.Fatalf("order = %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if h.Unread() != 1 {
		t.Fatalf("hydration must not change unread, got %d", h.Unread())
	}
}

func TestClear(t *testing.T) {
	h := New(ident.PlayerIdentity{Name: "Foo"})
	h.Append(msgAt("a", "hi", time.Now()), true)
	h.Clear()
	if h.Len() != 0 || h.Unread() != 0 {
		t.Fatalf("Clear left Len=%d Unread=%d", h.Len(), h.Unread())
	}
}
