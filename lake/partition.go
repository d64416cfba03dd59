// Package lake persists chat rows as date-partitioned parquet objects in an
// object store. Partitions are keyed by (local calendar day, room); the store
// has no append primitive, so writes go through a read-union-rewrite merge.
package lake

import (
	"fmt"
	"time"
)

// localZone is the fixed offset used to bucket timestamps into calendar
// days. The monitored platform operates in UTC+8 regardless of where the
// archiver runs.
var localZone = time.FixedZone("UTC+8", 8*60*60)

// LocalMidnight returns the Unix timestamp of the start of the local
// calendar day containing ts (Unix seconds).
func LocalMidnight(ts int64) int64 {
	t := time.Unix(ts, 0).In(localZone)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, localZone)
	return midnight.Unix()
}

// IsNewDay reports whether newTS falls in a later local calendar day
// than oldTS.
func IsNewDay(oldTS, newTS int64) bool {
	return LocalMidnight(newTS) > LocalMidnight(oldTS)
}

// Partition identifies one persisted object: a room's rows for one local
// calendar day.
type Partition struct {
	RoomID int64
	// Day is the local calendar day in YYYY-MM-DD form.
	Day string
}

// PartitionFor derives the partition for a room and a Unix-seconds timestamp.
func PartitionFor(roomID int64, ts int64) Partition {
	return Partition{
		RoomID: roomID,
		Day:    time.Unix(ts, 0).In(localZone).Format("2006-01-02"),
	}
}

// Key returns the deterministic object key for the partition.
func (p Partition) Key() string {
	return fmt.Sprintf("%s/%d/danmu.parquet", p.Day, p.RoomID)
}

func (p Partition) String() string {
	return p.Key()
}
