package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/barrage-archive/barrage/types"
)

// Color palette.
var (
	userColor      = lipgloss.Color("#3B82F6") // Blue
	superChatColor = lipgloss.Color("#F59E0B") // Amber
	mutedColor     = lipgloss.Color("#6B7280") // Gray
)

// Styles for the live chat view.
var (
	timeStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(userColor)
	superChatStyle = lipgloss.NewStyle().Bold(true).Foreground(superChatColor)
	mutedStyle     = lipgloss.NewStyle().Foreground(mutedColor)
)

// printer writes one styled line per chat message.
type printer struct {
	out     io.Writer
	noColor bool
}

func newPrinter(out io.Writer, noColor bool) *printer {
	return &printer{out: out, noColor: noColor}
}

func (p *printer) print(at time.Time, msg types.Message) {
	user, body, ok := formatMessage(msg)
	if !ok {
		return
	}

	stamp := at.Format("15:04:05")
	if p.noColor {
		if user == "" {
			fmt.Fprintf(p.out, "%s  %s\n", stamp, body)
		} else {
			fmt.Fprintf(p.out, "%s  %s: %s\n", stamp, user, body)
		}
		return
	}

	stamp = timeStyle.Render(stamp)
	switch msg.Kind {
	case types.KindDanmu:
		fmt.Fprintf(p.out, "%s  %s: %s\n", stamp, userStyle.Render(user), body)
	case types.KindSuperChat:
		fmt.Fprintf(p.out, "%s  %s: %s\n", stamp, superChatStyle.Render(user), superChatStyle.Render(body))
	case types.KindEnterRoom:
		fmt.Fprintf(p.out, "%s  %s\n", stamp, mutedStyle.Render(user+" "+body))
	case types.KindOnlineCount:
		fmt.Fprintf(p.out, "%s  %s\n", stamp, mutedStyle.Render(body))
	}
}
