// Package classify inspects raw chat events and decides whether and how they
// relate to a direct-message conversation. All of the fragile text-pattern
// matching over decorated display strings lives here and nowhere else; every
// supported pattern is enumerated explicitly and anything unrecognized is an
// intentional "not relevant", never a guess.
//
// The patterns are locale- and game-version-dependent. Only the English
// formats below are recognized; that is an accepted limitation.
package classify

import (
	"log/slog"
	"strings"

	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
)

// Kind is the outcome of classifying a raw event.
type Kind uint8

const (
	NotRelevant Kind = iota
	IncomingTell
	OutgoingTell
	PossibleTellError
)

// Classification is the classifier's verdict. Sender is populated only for
// IncomingTell.
type Classification struct {
	Kind   Kind
	Sender ident.PlayerIdentity
}

// Classifier turns raw chat events into routing decisions.
type Classifier struct {
	log *slog.Logger
}

// New creates a Classifier. logger may be nil.
func New(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{log: logger}
}

// Classify determines how a raw event relates to a direct-message
// conversation.
func (c *Classifier) Classify(ev chat.Event) Classification {
	switch ev.Channel {
	case chat.ChannelTellIncoming:
		sender, ok := c.ExtractSender(ev)
		if !ok {
			return Classification{Kind: NotRelevant}
		}
		return Classification{Kind: IncomingTell, Sender: sender}
	case chat.ChannelTellOutgoing:
		return Classification{Kind: OutgoingTell}
	case chat.ChannelSystem, chat.ChannelError:
		if LooksLikeTellError(ev.ContentText) {
			return Classification{Kind: PossibleTellError}
		}
		return Classification{Kind: NotRelevant}
	default:
		return Classification{Kind: NotRelevant}
	}
}

// ExtractSender recovers the correspondent identity from a raw event.
// Priority: the structured payload when the transport supplied one, then a
// textual parse of the sender span, then the stable id as a last-resort
// world source. Fails soft with a debug log instead of guessing.
func (c *Classifier) ExtractSender(ev chat.Event) (ident.PlayerIdentity, bool) {
	if ev.SenderName != "" {
		return ident.New(ev.SenderName, ev.SenderWorld, ev.StableID), true
	}

	name := ident.Normalize(ev.SenderText)
	if name == "" {
		c.log.Debug("sender extraction failed", "sender_text", ev.SenderText, "stable_id", ev.StableID)
		return ident.PlayerIdentity{}, false
	}

	world, _ := ident.WorldSuffix(ev.SenderText)
	if world == 0 {
		if w, ok := ident.WorldFromStableID(ev.StableID); ok {
			world = w
		}
	}
	return ident.PlayerIdentity{Name: name, World: world, StableID: ev.StableID}, true
}

// IsAddressedTo reports whether an outgoing tell's sender label names the
// candidate. Exactly two label formats are supported: the full ">> Name: "
// form, and the already-normalized "You: " form which is always assumed to
// match the currently tracked outgoing target. Any other shape is false.
func (c *Classifier) IsAddressedTo(ev chat.Event, candidate ident.PlayerIdentity) bool {
	s := ev.SenderText
	if strings.HasPrefix(s, "You: ") || s == "You:" {
		return true
	}
	if rest, ok := strings.CutPrefix(s, ">> "); ok {
		name, _, found := strings.Cut(rest, ": ")
		if !found {
			return false
		}
		return strings.EqualFold(ident.Normalize(name), candidate.Name)
	}
	return false
}

// tellErrorFragments is the fixed set of substrings recognized as delivery
// failures. Advisory, not exhaustive.
var tellErrorFragments = []string{
	"could not be sent",
	"is not online",
	"has blocked you",
	"unable to send /tell",
	"recipient not found",
}

// LooksLikeTellError reports whether text resembles a tell delivery failure.
func LooksLikeTellError(text string) bool {
	lower := strings.ToLower(text)
	for _, frag := range tellErrorFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
