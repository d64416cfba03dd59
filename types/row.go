package types

// RowType discriminates persisted row kinds within the shared schema.
type RowType int8

// Row type constants. Values are part of the persisted format.
const (
	RowTypeDanmu     RowType = 1
	RowTypeSuperChat RowType = 2
)

// String returns the partition-friendly name of the row type.
func (t RowType) String() string {
	switch t {
	case RowTypeSuperChat:
		return "super_chat"
	default:
		return "danmu"
	}
}

// Row is the persisted record shape. Danmu and super-chat rows share one
// schema, discriminated by MsgType; Worth is zero for plain danmu.
type Row struct {
	MsgType   int8    `parquet:"msg_type"`
	UID       int64   `parquet:"uid"`
	Username  string  `parquet:"username"`
	Text      string  `parquet:"msg"`
	Timestamp int64   `parquet:"timestamp"`
	Worth     float32 `parquet:"worth"`
}

// RowFromMessage converts a persistable message into its storage row.
// Returns false for message kinds that are not archived.
func RowFromMessage(m Message) (Row, bool) {
	switch m.Kind {
	case KindDanmu:
		return Row{
			MsgType:   int8(RowTypeDanmu),
			UID:       int64(m.Danmu.UID),
			Username:  m.Danmu.Username,
			Text:      m.Danmu.Text,
			Timestamp: int64(m.Danmu.Timestamp),
		}, true
	case KindSuperChat:
		return Row{
			MsgType:   int8(RowTypeSuperChat),
			UID:       int64(m.SuperChat.UID),
			Username:  m.SuperChat.Username,
			Text:      m.SuperChat.Text,
			Timestamp: int64(m.SuperChat.Timestamp),
			Worth:     float32(m.SuperChat.Worth),
		}, true
	default:
		return Row{}, false
	}
}
