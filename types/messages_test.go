package types_test

import (
	"testing"

	"github.com/barrage-archive/barrage/types"
)

func TestIsPersistable(t *testing.T) {
	cases := []struct {
		msg  types.Message
		want bool
	}{
		{types.Message{Kind: types.KindDanmu, Danmu: &types.Danmu{}}, true},
		{types.Message{Kind: types.KindSuperChat, SuperChat: &types.SuperChat{}}, true},
		{types.Message{Kind: types.KindEnterRoom, EnterRoom: &types.EnterRoom{}}, false},
		{types.Message{Kind: types.KindOnlineCount, OnlineCount: &types.OnlineCount{}}, false},
		{types.Ignored(), false},
	}

	for _, tc := range cases {
		if got := tc.msg.IsPersistable(); got != tc.want {
			t.Errorf("IsPersistable(%s) = %v, want %v", tc.msg.Kind, got, tc.want)
		}
	}
}

func TestRowFromMessage_Danmu(t *testing.T) {
	msg := types.Message{Kind: types.KindDanmu, Danmu: &types.Danmu{
		UID:       10000,
		Username:  "Alice",
		Text:      "Hello",
		Timestamp: 1719764239000,
	}}

	row, ok := types.RowFromMessage(msg)
	if !ok {
		t.Fatal("expected danmu to convert")
	}
	if row.MsgType != int8(types.RowTypeDanmu) {
		t.Errorf("expected msg_type %d, got %d", types.RowTypeDanmu, row.MsgType)
	}
	if row.UID != 10000 || row.Username != "Alice" || row.Text != "Hello" {
		t.Errorf("unexpected row fields: %+v", row)
	}
	if row.Timestamp != 1719764239000 {
		t.Errorf("expected timestamp 1719764239000, got %d", row.Timestamp)
	}
	if row.Worth != 0 {
		t.Errorf("danmu worth must default to 0, got %f", row.Worth)
	}
}

func TestRowFromMessage_SuperChat(t *testing.T) {
	msg := types.Message{Kind: types.KindSuperChat, SuperChat: &types.SuperChat{
		UID:       42,
		Username:  "Bob",
		Text:      "thanks",
		Timestamp: 1720068325,
		Worth:     30,
	}}

	row, ok := types.RowFromMessage(msg)
	if !ok {
		t.Fatal("expected super chat to convert")
	}
	if row.MsgType != int8(types.RowTypeSuperChat) {
		t.Errorf("expected msg_type %d, got %d", types.RowTypeSuperChat, row.MsgType)
	}
	if row.Worth != 30 {
		t.Errorf("expected worth 30, got %f", row.Worth)
	}
}

func TestRowFromMessage_NonPersistable(t *testing.T) {
	if _, ok := types.RowFromMessage(types.Ignored()); ok {
		t.Error("ignored messages must not convert to rows")
	}
	enter := types.Message{Kind: types.KindEnterRoom, EnterRoom: &types.EnterRoom{UID: 1}}
	if _, ok := types.RowFromMessage(enter); ok {
		t.Error("enter_room messages must not convert to rows")
	}
}
