package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/history"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
)

var errFloatingWindowBusy = errors.New("a floating window is already open")

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62"))
	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
	windowStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	incomingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	outgoingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusStyle   = lipgloss.NewStyle().Faint(true)
)

// View renders the overlay: tab strip, focused conversation (or floating
// window), input line, status line.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabStrip())
	b.WriteString("\n")

	if body := m.renderFocused(); body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	return b.String()
}

func (m *Model) renderTabStrip() string {
	type tab struct {
		id     ident.PlayerIdentity
		active bool
	}
	m.mu.Lock()
	tabs := make([]tab, 0, len(m.tabOrder))
	for i, h := range m.tabOrder {
		tabs = append(tabs, tab{id: m.surfaces[h].id, active: i == m.active && m.window == 0})
	}
	m.mu.Unlock()

	if len(tabs) == 0 {
		return tabStyle.Render("no conversations")
	}

	parts := make([]string, len(tabs))
	for i, t := range tabs {
		label := t.id.Display()
		if m.cfg.UnreadBadge && m.reg != nil {
			if n := m.reg.GetOrCreateHistory(t.id).Unread(); n > 0 {
				label += badgeStyle.Render(fmt.Sprintf(" (%d)", n))
			}
		}
		if t.active {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = tabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderFocused draws the floating window when one is open, else the active
// tab's conversation.
func (m *Model) renderFocused() string {
	id, ok := m.focusedIdentity()
	if !ok || m.reg == nil {
		return ""
	}
	m.mu.Lock()
	windowed := m.window != 0
	m.mu.Unlock()

	body := m.renderConversation(m.reg.GetOrCreateHistory(id))
	if !windowed {
		return body
	}
	title := id.Display()
	w := max(len(title)+4, 40)
	return windowStyle.Width(min(w, max(20, m.width-4))).Render(title + "\n\n" + body)
}

// renderConversation snapshots a history with a bounded lock wait. A
// contended lock renders nothing this frame rather than stalling the draw
// pass.
func (m *Model) renderConversation(h *history.History) string {
	msgs, ok := h.RecentWithin(renderDepth, historyWait)
	if !ok {
		return ""
	}
	if len(msgs) == 0 {
		return statusStyle.Render("no messages yet")
	}

	lines := make([]string, len(msgs))
	for i, msg := range msgs {
		lines[i] = renderMessage(msg)
	}
	return strings.Join(lines, "\n")
}

func renderMessage(m chat.Message) string {
	ts := m.Time.Format("15:04")
	switch m.Kind {
	case chat.KindTellIncoming:
		return incomingStyle.Render(fmt.Sprintf("%s %s: %s", ts, m.Sender, m.Content))
	case chat.KindTellOutgoing:
		return outgoingStyle.Render(fmt.Sprintf("%s You: %s", ts, m.Content))
	case chat.KindError:
		return errorStyle.Render(fmt.Sprintf("%s ! %s", ts, m.Content))
	default:
		return fmt.Sprintf("%s %s", ts, m.Content)
	}
}
