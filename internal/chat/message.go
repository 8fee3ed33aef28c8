// Package chat defines the message and event model shared by the
// direct-message subsystem: the raw events the host environment delivers and
// the immutable messages the core keeps in conversation histories.
package chat

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Channel identifies which chat channel a raw event arrived on.
type Channel uint8

const (
	ChannelOther Channel = iota
	ChannelTellIncoming
	ChannelTellOutgoing
	ChannelSystem
	ChannelError
)

// Kind classifies a stored message.
type Kind uint8

const (
	KindOther Kind = iota
	KindTellIncoming
	KindTellOutgoing
	KindError
)

// String returns a short label for logs.
func (k Kind) String() string {
	switch k {
	case KindTellIncoming:
		return "tell-in"
	case KindTellOutgoing:
		return "tell-out"
	case KindError:
		return "error"
	default:
		return "other"
	}
}

// Event is a raw chat event as delivered by the host environment's transport.
// SenderName and SenderWorld carry the structured sender payload when the
// transport has one; zero values mean the payload is absent and the sender
// must be recovered from SenderText. ID is the message id the transport
// assigned when it appended the event to the persisted chat log; carrying it
// on the event lets the live copy and the stored row deduplicate as one
// message during hydration.
type Event struct {
	ID          string
	Channel     Channel
	SenderText  string
	ContentText string
	Time        time.Time
	StableID    uint64
	SenderName  string
	SenderWorld uint32
}

// Message is one exchanged message. Created once by the classifier or the
// transport and never mutated afterwards.
type Message struct {
	ID       string
	Sender   string
	Content  string
	Time     time.Time
	StableID uint64
	Kind     Kind
}

// NewMessage builds a Message with a fresh ULID. A zero ts is replaced with
// the current time so ordering bookkeeping never sees the zero value.
func NewMessage(kind Kind, sender, content string, ts time.Time, stableID uint64) Message {
	if ts.IsZero() {
		ts = time.Now()
	}
	return Message{
		ID:       ulid.Make().String(),
		Sender:   sender,
		Content:  content,
		Time:     ts,
		StableID: stableID,
		Kind:     kind,
	}
}

// MessageFromEvent builds the stored Message for a routed event, reusing the
// transport-assigned id when the event carries one so the live append and the
// same row read back from the chat log count as one message.
func MessageFromEvent(ev Event, kind Kind, sender string, stableID uint64) Message {
	m := NewMessage(kind, sender, ev.ContentText, ev.Time, stableID)
	if ev.ID != "" {
		m.ID = ev.ID
	}
	return m
}
