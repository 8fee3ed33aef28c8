package classify

import (
	"testing"
	"time"

	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
)

func incoming(senderText string) chat.Event {
	return chat.Event{
		Channel:     chat.ChannelTellIncoming,
		SenderText:  senderText,
		ContentText: "hello",
		Time:        time.Now(),
	}
}

func TestClassify_IncomingTell(t *testing.T) {
	c := New(nil)
	got := c.Classify(incoming(">> Foo Bar@34"))
	if got.Kind != IncomingTell {
		t.Fatalf("Kind = %d, want IncomingTell", got.Kind)
	}
	if got.Sender.Name != "Foo Bar" || got.Sender.World != 34 {
		t.Fatalf("Sender = %+v", got.Sender)
	}
}

func TestClassify_IncomingTellUnparsableSender(t *testing.T) {
	c := New(nil)
	// A sender span of pure glyphs normalizes to nothing: not relevant, no guess.
	if got := c.Classify(incoming("")); got.Kind != NotRelevant {
		t.Fatalf("Kind = %d, want NotRelevant", got.Kind)
	}
}

func TestClassify_OtherChannels(t *testing.T) {
	c := New(nil)
	if got := c.Classify(chat.Event{Channel: chat.ChannelTellOutgoing}); got.Kind != OutgoingTell {
		t.Fatalf("outgoing: Kind = %d", got.Kind)
	}
	if got := c.Classify(chat.Event{Channel: chat.ChannelOther, ContentText: "is not online"}); got.Kind != NotRelevant {
		t.Fatalf("other channel: Kind = %d", got.Kind)
	}
	if got := c.Classify(chat.Event{Channel: chat.ChannelError, ContentText: "Bar is not online."}); got.Kind != PossibleTellError {
		t.Fatalf("error channel: Kind = %d", got.Kind)
	}
	if got := c.Classify(chat.Event{Channel: chat.ChannelSystem, ContentText: "Welcome back."}); got.Kind != NotRelevant {
		t.Fatalf("benign system: Kind = %d", got.Kind)
	}
}

func TestExtractSender_StructuredPayloadWins(t *testing.T) {
	c := New(nil)
	ev := chat.Event{
		Channel:     chat.ChannelTellIncoming,
		SenderText:  ">> Wrong Name@99",
		SenderName:  "Right Name",
		SenderWorld: 7,
		StableID:    42,
	}
	id, ok := c.ExtractSender(ev)
	if !ok {
		t.Fatal("extraction failed")
	}
	if id.Name != "Right Name" || id.World != 7 || id.StableID != 42 {
		t.Fatalf("identity = %+v", id)
	}
}

func TestExtractSender_StableIDWorldFallback(t *testing.T) {
	c := New(nil)
	ev := chat.Event{
		Channel:    chat.ChannelTellIncoming,
		SenderText: ">> Foo Bar",
		StableID:   uint64(73)<<48 | 999,
	}
	id, ok := c.ExtractSender(ev)
	if !ok || id.World != 73 {
		t.Fatalf("identity = %+v, ok = %v, want world 73", id, ok)
	}
}

func TestIsAddressedTo(t *testing.T) {
	c := New(nil)
	foo := ident.PlayerIdentity{Name: "Foo Bar", World: 3}
	cases := []struct {
		senderText string
		want       bool
	}{
		{">> Foo Bar: ", true},
		{">> foo bar: ", true},
		{">> Someone Else: ", false},
		{"You: ", true},
		{"You:", true},
		{"Foo Bar: ", false},    // unsupported label shape
		{">> Foo Bar", false},   // no ": " terminator
		{"<< Foo Bar: ", false}, // incoming marker, not a target label
	}
	for _, cse := range cases {
		ev := chat.Event{Channel: chat.ChannelTellOutgoing, SenderText: cse.senderText}
		if got := c.IsAddressedTo(ev, foo); got != cse.want {
			t.Errorf("IsAddressedTo(%q) = %v, want %v", cse.senderText, got, cse.want)
		}
	}
}

func TestLooksLikeTellError(t *testing.T) {
	for _, s := range []string{
		"Your message to Foo could not be sent.",
		"Bar is not online.",
		"That player has blocked you.",
		"Unable to send /tell right now.",
		"Recipient not found.",
	} {
		if !LooksLikeTellError(s) {
			t.Errorf("LooksLikeTellError(%q) = false", s)
		}
	}
	if LooksLikeTellError("Foo says hello") {
		t.Error("benign text matched the error list")
	}
}
