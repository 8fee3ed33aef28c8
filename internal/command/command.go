// Package command implements the textual entry point for opening
// direct-message sessions: no argument reopens the most recently active
// conversation, an exact name opens that correspondent, a partial match is
// disambiguated, and an unknown name creates a fresh identity on the local
// world.
package command

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/Pox4ever/ChatTwo-sub000/internal/config"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
	"github.com/Pox4ever/ChatTwo-sub000/internal/router"
	"github.com/Pox4ever/ChatTwo-sub000/internal/session"
)

// maxDisambiguation caps how many candidates a disambiguation report lists.
const maxDisambiguation = 5

// ResultKind is the outcome of running the command.
type ResultKind uint8

const (
	// Opened: a session was opened or focused.
	Opened ResultKind = iota
	// Disambiguation: the argument matched several correspondents; no
	// action was taken.
	Disambiguation
	// NoSessions: no argument was given and no conversation exists yet.
	NoSessions
	// NotLoggedIn: an unknown name was given while logged out, so no local
	// world is available to assume.
	NotLoggedIn
	// Failed: the presentation layer refused the surface.
	Failed
)

// Result reports what the command did.
type Result struct {
	Kind       ResultKind
	Identity   ident.PlayerIdentity
	Candidates []string
}

// Runner executes the command against the live registry and router.
type Runner struct {
	reg      *session.Registry
	rt       *router.Router
	cfg      *config.Config
	loggedIn func() bool
	log      *slog.Logger
}

// New creates a Runner. loggedIn reports whether a local character is
// logged in; logger may be nil.
func New(reg *session.Registry, rt *router.Router, cfg *config.Config, loggedIn func() bool, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if loggedIn == nil {
		loggedIn = func() bool { return false }
	}
	return &Runner{reg: reg, rt: rt, cfg: cfg, loggedIn: loggedIn, log: logger}
}

// Run executes the command with an optional player-name argument.
func (r *Runner) Run(arg string) Result {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return r.focusMostRecent()
	}

	name := ident.Normalize(arg)

	// Exact name match wins outright.
	if matches := r.reg.FindByName(name); len(matches) == 1 {
		return r.open(matches[0].Identity)
	} else if len(matches) > 1 {
		return disambiguate(matches)
	}

	// Partial match over tracked names.
	tracked := r.reg.Sessions()
	names := make([]string, len(tracked))
	for i, s := range tracked {
		names[i] = s.Identity.Name
	}
	found := fuzzy.Find(name, names)
	switch len(found) {
	case 0:
	case 1:
		return r.open(tracked[found[0].Index].Identity)
	default:
		matched := make([]*session.Session, len(found))
		for i, m := range found {
			matched[i] = tracked[m.Index]
		}
		return disambiguate(matched)
	}

	// Brand-new correspondent, assumed on the local world.
	if !r.loggedIn() {
		r.log.Debug("dm command for unknown name while logged out", "name", name)
		return Result{Kind: NotLoggedIn}
	}
	id := r.rt.FindOrCreateByNameAndWorld(name, r.cfg.LocalWorld)
	return r.open(id)
}

func (r *Runner) focusMostRecent() Result {
	s := r.reg.MostRecentlyActive()
	if s == nil {
		return Result{Kind: NoSessions}
	}
	return r.open(s.Identity)
}

func (r *Runner) open(id ident.PlayerIdentity) Result {
	var err error
	if r.cfg.DefaultMode == config.ModeWindow {
		_, err = r.reg.OpenWindow(id)
	} else {
		_, err = r.reg.OpenTab(id)
	}
	if err != nil {
		return Result{Kind: Failed, Identity: id}
	}
	return Result{Kind: Opened, Identity: id}
}

func disambiguate(matches []*session.Session) Result {
	names := make([]string, 0, len(matches))
	for _, s := range matches {
		names = append(names, s.Identity.Display())
	}
	sort.Strings(names)
	if len(names) > maxDisambiguation {
		names = names[:maxDisambiguation]
	}
	return Result{Kind: Disambiguation, Candidates: names}
}
