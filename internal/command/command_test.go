package command

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/classify"
	"github.com/Pox4ever/ChatTwo-sub000/internal/config"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
	"github.com/Pox4ever/ChatTwo-sub000/internal/router"
	"github.com/Pox4ever/ChatTwo-sub000/internal/session"
)

type memHost struct {
	mu    sync.Mutex
	next  session.PresentationHandle
	alive map[session.PresentationHandle]bool
}

func (h *memHost) create() (session.PresentationHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.alive == nil {
		h.alive = make(map[session.PresentationHandle]bool)
	}
	h.next++
	h.alive[h.next] = true
	return h.next, nil
}

func (h *memHost) CreateTab(ident.PlayerIdentity) (session.PresentationHandle, error) {
	return h.create()
}

func (h *memHost) CreateWindow(ident.PlayerIdentity) (session.PresentationHandle, error) {
	return h.create()
}

func (h *memHost) Destroy(hd session.PresentationHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.alive, hd)
}

func (h *memHost) Alive(hd session.PresentationHandle) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive[hd]
}

func newRunner(t *testing.T, loggedIn bool) (*Runner, *session.Registry) {
	t.Helper()
	cfg := config.Default()
	cfg.LocalWorld = 11
	reg := session.New(&memHost{}, nil, nil, 0, nil)
	rt := router.New(reg, classify.New(nil), cfg, nil)
	return New(reg, rt, cfg, func() bool { return loggedIn }, nil), reg
}

func touch(reg *session.Registry, name string, world uint32, at time.Time) {
	h := reg.GetOrCreateHistory(ident.PlayerIdentity{Name: name, World: world})
	h.Append(chat.Message{ID: name + at.String(), Content: "hi", Time: at}, false)
}

func TestRun_NoArgFocusesMostRecent(t *testing.T) {
	r, reg := newRunner(t, true)
	now := time.Now()
	touch(reg, "Alpha", 1, now.Add(-time.Hour))
	touch(reg, "Beta", 1, now)

	res := r.Run("")
	require.Equal(t, Opened, res.Kind)
	require.Equal(t, "Beta", res.Identity.Name)
	require.True(t, reg.HasSession(res.Identity))
}

func TestRun_NoArgNoSessions(t *testing.T) {
	r, _ := newRunner(t, true)
	require.Equal(t, NoSessions, r.Run("").Kind)
}

func TestRun_ExactMatch(t *testing.T) {
	r, reg := newRunner(t, true)
	touch(reg, "Foo Bar", 3, time.Now())

	res := r.Run("foo bar")
	require.Equal(t, Opened, res.Kind)
	require.Equal(t, "Foo Bar", res.Identity.Name)
	require.Len(t, reg.Sessions(), 1, "exact match must not create a duplicate")
}

func TestRun_AmbiguousPartialMatchCapsAtFive(t *testing.T) {
	r, reg := newRunner(t, true)
	for i := 0; i < 7; i++ {
		touch(reg, fmt.Sprintf("Grumpy Cat%c", 'A'+i), 1, time.Now())
	}

	res := r.Run("grumpy")
	require.Equal(t, Disambiguation, res.Kind)
	require.Len(t, res.Candidates, 5)
	// No action was taken.
	for _, s := range reg.Sessions() {
		require.Nil(t, s.Presentation)
	}
}

func TestRun_UniquePartialMatchOpens(t *testing.T) {
	r, reg := newRunner(t, true)
	touch(reg, "Grumpy Cat", 1, time.Now())
	touch(reg, "Sunny Dog", 1, time.Now())

	res := r.Run("grmp")
	require.Equal(t, Opened, res.Kind)
	require.Equal(t, "Grumpy Cat", res.Identity.Name)
	require.True(t, reg.HasSession(res.Identity))
}

func TestRun_SameNameTwoWorldsDisambiguates(t *testing.T) {
	r, reg := newRunner(t, true)
	touch(reg, "Foo Bar", 3, time.Now())
	touch(reg, "Foo Bar", 4, time.Now())

	res := r.Run("Foo Bar")
	require.Equal(t, Disambiguation, res.Kind)
	require.Equal(t, []string{"Foo Bar@3", "Foo Bar@4"}, res.Candidates)
}

func TestRun_UnknownNameCreatesOnLocalWorld(t *testing.T) {
	r, reg := newRunner(t, true)

	res := r.Run("Newcomer")
	require.Equal(t, Opened, res.Kind)
	require.Equal(t, "Newcomer", res.Identity.Name)
	require.Equal(t, uint32(11), res.Identity.World)
	require.True(t, reg.HasSession(res.Identity))
}

func TestRun_UnknownNameLoggedOut(t *testing.T) {
	r, reg := newRunner(t, false)
	res := r.Run("Newcomer")
	require.Equal(t, NotLoggedIn, res.Kind)
	require.Empty(t, reg.Sessions())
}
