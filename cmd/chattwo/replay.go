package main

import (
	"bufio"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
	"github.com/Pox4ever/ChatTwo-sub000/internal/router"
	"github.com/Pox4ever/ChatTwo-sub000/internal/store"
)

// loggingTransport stands in for the game-server transport: it records
// outgoing tells into the observed chat log. Real delivery is the host
// environment's problem.
type loggingTransport struct {
	store *store.Store
	log   *slog.Logger
}

func (t *loggingTransport) SendTell(target ident.PlayerIdentity, text string) (string, error) {
	m := chat.NewMessage(chat.KindTellOutgoing, "You", text, time.Now(), target.StableID)
	if err := t.store.Append(target, m); err != nil {
		t.log.Warn("chat log append failed", "target", target.Display(), "error", err)
	}
	return m.ID, nil
}

// startReplay feeds a transcript through the router on its own goroutine,
// one line every few hundred milliseconds, standing in for live events from
// another execution context. Line formats:
//
//	IN Name@World message text
//	OUT Name@World message text
//	ERR message text
//
// Unparsable lines are skipped with a log entry.
func startReplay(path string, rt *router.Router, st *store.Store, logger *slog.Logger) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f, err := os.Open(path)
		if err != nil {
			logger.Warn("replay open failed", "path", path, "error", err)
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			replayLine(line, rt, st, logger)
			time.Sleep(300 * time.Millisecond)
		}
		if err := scanner.Err(); err != nil {
			logger.Warn("replay read failed", "path", path, "error", err)
		}
	}()
	return done
}

func replayLine(line string, rt *router.Router, st *store.Store, logger *slog.Logger) {
	directive, rest, _ := strings.Cut(line, " ")
	switch directive {
	case "ERR":
		rt.RouteError(chat.Event{Channel: chat.ChannelError, ContentText: rest, Time: time.Now()})
		return
	case "IN", "OUT":
	default:
		logger.Debug("replay line skipped", "line", line)
		return
	}

	who, text, ok := strings.Cut(rest, " ")
	if !ok {
		logger.Debug("replay line skipped", "line", line)
		return
	}
	name, worldStr, _ := strings.Cut(who, "@")
	var world uint32
	if n, err := strconv.ParseUint(worldStr, 10, 32); err == nil {
		world = uint32(n)
	}
	id := ident.New(name, world, 0)
	now := time.Now()

	if directive == "OUT" {
		m := chat.NewMessage(chat.KindTellOutgoing, "You", text, now, 0)
		appendObserved(st, id, m, logger)
		ev := chat.Event{ID: m.ID, Channel: chat.ChannelTellOutgoing, SenderText: "You: ", ContentText: text, Time: now}
		rt.RouteOutgoing(id, ev)
		return
	}

	m := chat.NewMessage(chat.KindTellIncoming, id.Display(), text, now, 0)
	appendObserved(st, id, m, logger)
	ev := chat.Event{
		ID:          m.ID,
		Channel:     chat.ChannelTellIncoming,
		SenderName:  id.Name,
		SenderWorld: id.World,
		ContentText: text,
		Time:        now,
	}
	rt.RouteIncoming(ev)
}

// appendObserved mirrors an event into the persisted chat log, playing the
// host environment's role as the log's only writer.
func appendObserved(st *store.Store, id ident.PlayerIdentity, m chat.Message, logger *slog.Logger) {
	if err := st.Append(id, m); err != nil {
		logger.Warn("chat log append failed", "identity", id.Display(), "error", err)
	}
}
