package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/barrage-archive/barrage/cli/config"
	"github.com/barrage-archive/barrage/types"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := &cli.App{
		Writer:   &out,
		Commands: []*cli.Command{VersionCommand("abc1234")},
	}

	if err := app.Run([]string{"barrage", "version"}); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, types.Version) || !strings.Contains(got, "abc1234") {
		t.Errorf("unexpected version output: %q", got)
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barrage.yaml")
	content := "cookie: \"DedeUserID=1; buvid3=d\"\nrooms: [42]\nstorage:\n  bucket: archive\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var got *config.Config
	app := &cli.App{
		Commands: []*cli.Command{{
			Name: "probe",
			Flags: []cli.Flag{
				configFlag(),
				cookieFlag(),
				&cli.Int64SliceFlag{Name: "room"},
				&cli.IntFlag{Name: "flush-rows"},
				&cli.DurationFlag{Name: "flush-interval"},
			},
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				got = cfg
				return err
			},
		}},
	}

	args := []string{"barrage", "probe",
		"--config", path,
		"--room", "7", "--room", "9",
		"--flush-rows", "50",
		"--flush-interval", "90s",
	}
	if err := app.Run(args); err != nil {
		t.Fatalf("probe failed: %v", err)
	}

	if got.Cookie != "DedeUserID=1; buvid3=d" {
		t.Errorf("cookie must come from the file, got %q", got.Cookie)
	}
	if len(got.Rooms) != 2 || got.Rooms[0] != 7 || got.Rooms[1] != 9 {
		t.Errorf("room flags must override config, got %v", got.Rooms)
	}
	if got.Ingest.FlushRows != 50 {
		t.Errorf("flush-rows override lost: %d", got.Ingest.FlushRows)
	}
	if got.Ingest.FlushInterval.Duration != 90*time.Second {
		t.Errorf("flush-interval override lost: %v", got.Ingest.FlushInterval.Duration)
	}
}

func TestPrinterPlainOutput(t *testing.T) {
	at := time.Date(2024, 7, 12, 21, 3, 26, 0, time.UTC)

	cases := []struct {
		name string
		msg  types.Message
		want string
	}{
		{
			name: "danmu",
			msg: types.Message{Kind: types.KindDanmu, Danmu: &types.Danmu{
				Username: "Alice", Text: "Hello",
			}},
			want: "21:03:26  Alice: Hello\n",
		},
		{
			name: "super chat shows worth",
			msg: types.Message{Kind: types.KindSuperChat, SuperChat: &types.SuperChat{
				Username: "Bob", Text: "thanks", Worth: 30,
			}},
			want: "21:03:26  Bob: ¥30 thanks\n",
		},
		{
			name: "enter room",
			msg: types.Message{Kind: types.KindEnterRoom, EnterRoom: &types.EnterRoom{
				Username: "Carol",
			}},
			want: "21:03:26  Carol: entered the room\n",
		},
		{
			name: "online count has no user",
			msg: types.Message{Kind: types.KindOnlineCount, OnlineCount: &types.OnlineCount{
				Count: 1234,
			}},
			want: "21:03:26  1234 watching\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			newPrinter(&out, true).print(at, tc.msg)
			if out.String() != tc.want {
				t.Errorf("got %q, want %q", out.String(), tc.want)
			}
		})
	}
}

func TestPrinterSkipsIgnored(t *testing.T) {
	var out bytes.Buffer
	newPrinter(&out, true).print(time.Now(), types.Ignored())
	if out.Len() != 0 {
		t.Errorf("ignored messages must not print, got %q", out.String())
	}
}
