// Package feed defines the live fan-out boundary.
//
// Publishers forward decoded chat events to downstream consumers as they
// arrive, independent of the durable parquet path. The runtime owns
// publisher lifecycle; users provide configuration only.
package feed

import (
	"context"

	"github.com/barrage-archive/barrage/types"
)

// Event is the payload published for one decoded chat message.
type Event struct {
	RoomID    int64   `json:"room_id"`
	Kind      string  `json:"kind"`
	UID       uint64  `json:"uid,omitempty"`
	Username  string  `json:"username,omitempty"`
	Text      string  `json:"text,omitempty"`
	Worth     float64 `json:"worth,omitempty"`
	Count     uint64  `json:"count,omitempty"`
	Timestamp uint64  `json:"timestamp"`
}

// FromMessage converts a decoded message into a feed event. The second
// return is false for kinds that do not fan out.
func FromMessage(roomID int64, msg types.Message) (Event, bool) {
	e := Event{RoomID: roomID, Kind: string(msg.Kind)}
	switch msg.Kind {
	case types.KindDanmu:
		e.UID = msg.Danmu.UID
		e.Username = msg.Danmu.Username
		e.Text = msg.Danmu.Text
		e.Timestamp = msg.Danmu.Timestamp
	case types.KindEnterRoom:
		e.UID = msg.EnterRoom.UID
		e.Username = msg.EnterRoom.Username
		e.Timestamp = msg.EnterRoom.Timestamp
	case types.KindOnlineCount:
		e.Count = msg.OnlineCount.Count
		e.Timestamp = msg.OnlineCount.Timestamp
	case types.KindSuperChat:
		e.UID = msg.SuperChat.UID
		e.Username = msg.SuperChat.Username
		e.Text = msg.SuperChat.Text
		e.Worth = msg.SuperChat.Worth
		e.Timestamp = msg.SuperChat.Timestamp
	default:
		return Event{}, false
	}
	return e, true
}

// Publisher forwards feed events to a downstream system.
type Publisher interface {
	// Publish sends one event. Must respect context cancellation and
	// deadlines.
	Publish(ctx context.Context, event Event) error

	// Close releases publisher resources.
	Close() error
}
