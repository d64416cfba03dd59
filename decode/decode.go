// Package decode parses JSON command bodies from the chat stream into typed
// domain messages.
//
// Decoding is never stream-fatal: a malformed or incomplete command is
// logged and collapses to an Ignored message so one bad frame cannot abort
// ingestion for a room.
package decode

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/barrage-archive/barrage/log"
	"github.com/barrage-archive/barrage/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// benignCmds are recognized command kinds that carry nothing we consume.
// They collapse to Ignored without logging.
var benignCmds = map[string]struct{}{
	"WATCHED_CHANGE":      {},
	"ENTRY_EFFECT":        {},
	"DM_INTERACTION":      {},
	"WIDGET_BANNER":       {},
	"ONLINE_RANK_V2":      {},
	"NOTICE_MSG":          {},
	"LIKE_INFO_V3_CLICK":  {},
	"STOP_LIVE_ROOM_LIST": {},
	"RECOMMEND_CARD":      {},
	"LIKE_INFO_V3_UPDATE": {},
}

// Decoder turns raw command bodies into Messages.
type Decoder struct {
	logger *log.Logger
	// now supplies receive-time stamps for commands the server does not
	// timestamp. Injectable for tests.
	now func() time.Time
}

// NewDecoder creates a Decoder logging through the given logger.
func NewDecoder(logger *log.Logger) *Decoder {
	return &Decoder{logger: logger, now: time.Now}
}

// NewDecoderWithClock creates a Decoder with an injected clock.
func NewDecoderWithClock(logger *log.Logger, now func() time.Time) *Decoder {
	return &Decoder{logger: logger, now: now}
}

// cmdProbe peeks at the command discriminator without a full decode.
type cmdProbe struct {
	Cmd string `json:"cmd"`
}

// Decode parses one JSON command body into a Message.
//
// Unknown commands and commands with missing fields decode to Ignored;
// only the latter are worth a log line.
func (d *Decoder) Decode(body []byte) types.Message {
	var probe cmdProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		d.logger.Warn("undecodable command body", map[string]any{
			"error": err.Error(),
		})
		return types.Ignored()
	}

	var (
		msg types.Message
		err error
	)
	switch probe.Cmd {
	case "DANMU_MSG":
		msg, err = decodeDanmu(body)
	case "INTERACT_WORD":
		msg, err = decodeEnterRoom(body)
	case "SUPER_CHAT_MESSAGE":
		msg, err = decodeSuperChat(body)
	case "ONLINE_RANK_COUNT":
		msg, err = d.decodeOnlineCount(body)
	default:
		if _, benign := benignCmds[probe.Cmd]; !benign {
			d.logger.Debug("unsupported command", map[string]any{
				"cmd": probe.Cmd,
			})
		}
		return types.Ignored()
	}

	if err != nil {
		d.logger.Warn("command field extraction failed", map[string]any{
			"cmd":   probe.Cmd,
			"error": err.Error(),
		})
		return types.Ignored()
	}
	return msg
}

// requireField wraps the jsoniter path lookup with a missing-field error.
func requireField(body []byte, path ...any) (jsoniter.Any, error) {
	value := jsoniter.Get(body, path...)
	if value.ValueType() == jsoniter.InvalidValue {
		return nil, fmt.Errorf("missing field %v", path)
	}
	return value, nil
}

// decodeDanmu extracts a chat message from DANMU_MSG's positional info array:
// uid = info[2][0], username = info[2][1], text = info[1], ts = info[0][4].
func decodeDanmu(body []byte) (types.Message, error) {
	uid, err := requireField(body, "info", 2, 0)
	if err != nil {
		return types.Message{}, err
	}
	username, err := requireField(body, "info", 2, 1)
	if err != nil {
		return types.Message{}, err
	}
	text, err := requireField(body, "info", 1)
	if err != nil {
		return types.Message{}, err
	}
	ts, err := requireField(body, "info", 0, 4)
	if err != nil {
		return types.Message{}, err
	}

	return types.Message{Kind: types.KindDanmu, Danmu: &types.Danmu{
		UID:       uid.ToUint64(),
		Username:  username.ToString(),
		Text:      text.ToString(),
		Timestamp: ts.ToUint64(),
	}}, nil
}

// interactWord models the subset of INTERACT_WORD we consume.
type interactWord struct {
	Data struct {
		Uinfo     *uinfo  `json:"uinfo"`
		Timestamp *uint64 `json:"timestamp"`
	} `json:"data"`
}

// superChat models the subset of SUPER_CHAT_MESSAGE we consume.
type superChat struct {
	Data struct {
		Uinfo    *uinfo   `json:"uinfo"`
		Message  *string  `json:"message"`
		Price    *float64 `json:"price"`
		SendTime *uint64  `json:"send_time"`
	} `json:"data"`
}

// onlineRankCount models the subset of ONLINE_RANK_COUNT we consume.
type onlineRankCount struct {
	Data struct {
		OnlineCount *uint64 `json:"online_count"`
	} `json:"data"`
}

type uinfo struct {
	UID  uint64 `json:"uid"`
	Base struct {
		Name string `json:"name"`
	} `json:"base"`
}

func decodeEnterRoom(body []byte) (types.Message, error) {
	var cmd interactWord
	if err := json.Unmarshal(body, &cmd); err != nil {
		return types.Message{}, err
	}
	if cmd.Data.Uinfo == nil {
		return types.Message{}, fmt.Errorf("missing field data.uinfo")
	}
	if cmd.Data.Timestamp == nil {
		return types.Message{}, fmt.Errorf("missing field data.timestamp")
	}

	return types.Message{Kind: types.KindEnterRoom, EnterRoom: &types.EnterRoom{
		UID:       cmd.Data.Uinfo.UID,
		Username:  cmd.Data.Uinfo.Base.Name,
		Timestamp: *cmd.Data.Timestamp,
	}}, nil
}

func decodeSuperChat(body []byte) (types.Message, error) {
	var cmd superChat
	if err := json.Unmarshal(body, &cmd); err != nil {
		return types.Message{}, err
	}
	if cmd.Data.Uinfo == nil {
		return types.Message{}, fmt.Errorf("missing field data.uinfo")
	}
	if cmd.Data.Message == nil {
		return types.Message{}, fmt.Errorf("missing field data.message")
	}
	if cmd.Data.Price == nil {
		return types.Message{}, fmt.Errorf("missing field data.price")
	}
	if cmd.Data.SendTime == nil {
		return types.Message{}, fmt.Errorf("missing field data.send_time")
	}

	return types.Message{Kind: types.KindSuperChat, SuperChat: &types.SuperChat{
		UID:       cmd.Data.Uinfo.UID,
		Username:  cmd.Data.Uinfo.Base.Name,
		Text:      *cmd.Data.Message,
		Timestamp: *cmd.Data.SendTime,
		Worth:     *cmd.Data.Price,
	}}, nil
}

func (d *Decoder) decodeOnlineCount(body []byte) (types.Message, error) {
	var cmd onlineRankCount
	if err := json.Unmarshal(body, &cmd); err != nil {
		return types.Message{}, err
	}
	if cmd.Data.OnlineCount == nil {
		return types.Message{}, fmt.Errorf("missing field data.online_count")
	}

	// The server supplies no timestamp here; stamp local receive time.
	return types.Message{Kind: types.KindOnlineCount, OnlineCount: &types.OnlineCount{
		Count:     *cmd.Data.OnlineCount,
		Timestamp: uint64(d.now().UnixMilli()),
	}}, nil
}
