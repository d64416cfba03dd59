// Package types defines the domain message model shared across the wire
// decoder, the ingestion buffer, and the live feed adapters.
package types

// MessageKind discriminates the Message union.
type MessageKind string

// Message kind constants.
const (
	KindDanmu       MessageKind = "danmu"
	KindEnterRoom   MessageKind = "enter_room"
	KindOnlineCount MessageKind = "online_count"
	KindSuperChat   MessageKind = "super_chat"
	// KindIgnored marks commands that are recognized but carry nothing we
	// archive, and commands we do not understand. Never an error.
	KindIgnored MessageKind = "ignored"
)

// Message is one decoded chat-room event.
// Exactly one of the payload pointers is set, matching Kind; an Ignored
// message has none set.
type Message struct {
	Kind        MessageKind
	Danmu       *Danmu
	EnterRoom   *EnterRoom
	OnlineCount *OnlineCount
	SuperChat   *SuperChat
}

// Danmu is a regular chat message.
type Danmu struct {
	UID       uint64
	Username  string
	Text      string
	Timestamp uint64 // milliseconds
}

// EnterRoom is a viewer-entered-the-room notification.
type EnterRoom struct {
	UID       uint64
	Username  string
	Timestamp uint64 // seconds
}

// OnlineCount is a live viewer count update.
// The server does not supply a timestamp for these; the decoder stamps
// local receive time in milliseconds.
type OnlineCount struct {
	Count     uint64
	Timestamp uint64
}

// SuperChat is a paid highlighted message.
type SuperChat struct {
	UID       uint64
	Username  string
	Text      string
	Timestamp uint64 // seconds
	Worth     float64
}

// Ignored is the catch-all Message for allow-listed or unrecognized commands.
func Ignored() Message {
	return Message{Kind: KindIgnored}
}

// IsPersistable reports whether the ingestion layer archives this message.
// Only Danmu and SuperChat are persisted; EnterRoom and OnlineCount are
// delivered to live consumers but intentionally not archived.
func (m Message) IsPersistable() bool {
	return m.Kind == KindDanmu || m.Kind == KindSuperChat
}
