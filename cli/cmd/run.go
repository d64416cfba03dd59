package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/barrage-archive/barrage/cli/config"
	"github.com/barrage-archive/barrage/feed"
	feedredis "github.com/barrage-archive/barrage/feed/redis"
	"github.com/barrage-archive/barrage/ingest"
	"github.com/barrage-archive/barrage/lake"
	"github.com/barrage-archive/barrage/log"
	"github.com/barrage-archive/barrage/metrics"
	"github.com/barrage-archive/barrage/runtime"
	"github.com/barrage-archive/barrage/session"
)

// RunCommand returns the run command, the long-lived archiving loop.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Archive chat for the configured rooms until interrupted",
		Flags: []cli.Flag{
			configFlag(),
			cookieFlag(),
			&cli.Int64SliceFlag{
				Name:  "room",
				Usage: "Room ID to archive (repeatable, overrides config)",
			},
			&cli.IntFlag{
				Name:  "flush-rows",
				Usage: "Pending-row flush threshold (overrides config)",
			},
			&cli.DurationFlag{
				Name:  "flush-interval",
				Usage: "Maximum staleness between flushes (overrides config)",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger := log.NewLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := lake.NewS3Store(ctx, cfg.Storage.S3())
	if err != nil {
		return cli.Exit(fmt.Sprintf("storage: %v", err), 1)
	}
	merger := lake.NewMerger(store, logger)

	publisher, err := buildPublisher(cfg.Feed)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if publisher != nil {
		defer publisher.Close()
	}

	runners, err := buildRunners(ctx, cfg, merger, publisher, logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger.Info("archiver starting", map[string]any{
		"rooms": cfg.Rooms,
	})

	orchestrator := runtime.NewOrchestrator(runners, logger)
	runErr := orchestrator.Run(ctx)

	for _, snap := range orchestrator.Snapshots() {
		logger.Info("room totals", map[string]any{
			"room_id":        snap.RoomID,
			"messages":       snap.MessagesReceived,
			"rows_flushed":   snap.RowsFlushed,
			"flushes":        snap.Flushes,
			"flush_failures": snap.FlushFailures,
			"day_rollovers":  snap.PartitionSwitches,
		})
	}

	if runErr != nil {
		return cli.Exit(fmt.Sprintf("archiver failed: %v", runErr), 1)
	}
	logger.Info("archiver stopped", nil)
	return nil
}

// buildPublisher constructs the optional feed publisher.
func buildPublisher(cfg config.FeedConfig) (feed.Publisher, error) {
	if cfg.Type != "redis" {
		return nil, nil
	}
	retries := feedredis.DefaultRetries
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}
	return feedredis.New(feedredis.Config{
		URL:     cfg.URL,
		Channel: cfg.Channel,
		Timeout: cfg.Timeout.Duration,
		Retries: retries,
	})
}

// buildRunners wires one room task per configured room: session, metrics,
// buffer bound to today's partition, and the partition's remote object
// ensured up front.
func buildRunners(ctx context.Context, cfg *config.Config, merger *lake.Merger, publisher feed.Publisher, logger *log.Logger) ([]*runtime.RoomRunner, error) {
	runners := make([]*runtime.RoomRunner, 0, len(cfg.Rooms))
	for _, roomID := range cfg.Rooms {
		sess, err := session.New(session.Config{
			RoomID:  roomID,
			Cookie:  cfg.Cookie,
			InfoURL: cfg.InfoURL,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("room %d: %w", roomID, err)
		}

		collector := metrics.NewCollector(roomID, sess.ID())
		roomLogger := logger.WithRoom(roomID, sess.ID())

		partition := lake.PartitionFor(roomID, time.Now().Unix())
		if err := merger.Ensure(ctx, partition); err != nil {
			return nil, fmt.Errorf("room %d: ensure partition: %w", roomID, err)
		}

		buffer := ingest.NewBuffer(roomID, partition, merger, ingest.Config{
			FlushRows:     cfg.Ingest.FlushRows,
			FlushInterval: cfg.Ingest.FlushInterval.Duration,
			Metrics:       collector,
		}, roomLogger)

		runners = append(runners, runtime.NewRoomRunner(runtime.RunnerConfig{
			RoomID:    roomID,
			Source:    runtime.SessionSource{Session: sess},
			Buffer:    buffer,
			Publisher: publisher,
			Collector: collector,
			Logger:    roomLogger,
		}))
	}
	return runners, nil
}
