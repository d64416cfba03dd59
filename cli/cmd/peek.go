package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/barrage-archive/barrage/log"
	"github.com/barrage-archive/barrage/session"
	"github.com/barrage-archive/barrage/types"
)

// PeekCommand returns the peek command: a read-only live view of one
// room's chat, with nothing persisted.
func PeekCommand() *cli.Command {
	return &cli.Command{
		Name:  "peek",
		Usage: "Print a room's chat live without archiving",
		Flags: []cli.Flag{
			configFlag(),
			cookieFlag(),
			&cli.Int64Flag{
				Name:     "room",
				Usage:    "Room ID to watch",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable styled output",
			},
		},
		Action: peekAction,
	}
}

func peekAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	roomID := c.Int64("room")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session logs go to stderr as usual; the chat itself is stdout.
	sess, err := session.New(session.Config{
		RoomID:  roomID,
		Cookie:  cfg.Cookie,
		InfoURL: cfg.InfoURL,
		Logger:  log.NewLoggerWithWriter(io.Discard),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	stream, err := sess.Start(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("room %d: %v", roomID, err), 1)
	}

	printer := newPrinter(c.App.Writer, c.Bool("no-color"))
	for msg := range stream.Messages() {
		printer.print(time.Now(), msg)
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return cli.Exit(fmt.Sprintf("room %d: %v", roomID, err), 1)
	}
	return nil
}

// formatMessage renders one message body, without timestamp or styling
// decisions.
func formatMessage(msg types.Message) (user, body string, ok bool) {
	switch msg.Kind {
	case types.KindDanmu:
		return msg.Danmu.Username, msg.Danmu.Text, true
	case types.KindSuperChat:
		return msg.SuperChat.Username,
			fmt.Sprintf("¥%.0f %s", msg.SuperChat.Worth, msg.SuperChat.Text), true
	case types.KindEnterRoom:
		return msg.EnterRoom.Username, "entered the room", true
	case types.KindOnlineCount:
		return "", fmt.Sprintf("%d watching", msg.OnlineCount.Count), true
	default:
		return "", "", false
	}
}
