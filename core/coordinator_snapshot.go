package core

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"time"
)

// CoordinatorSnapshot is what a coordinator instance publishes to Redis
// every 5 seconds (see SnapshotPublisher.Run), for operator tooling that
// watches more than one instance.
type CoordinatorSnapshot struct {
	InstanceID     string    `json:"instance_id"`
	Hostname       string    `json:"hostname"`
	PID            int       `json:"pid"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
	PrecisePending int       `json:"precise_pending"`
	QuickPending   int       `json:"quick_pending"`
	FreePrecise    int       `json:"free_precise"`
	FreeQuick      int       `json:"free_quick"`
	BusyWorkers    int       `json:"busy_workers"`
	InFlightJudges int       `json:"in_flight_judges"`
	MemoryRSSBytes uint64    `json:"memory_rss_bytes"`
	NumGoroutine   int       `json:"num_goroutine"`
	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newCoordinatorSnapshot(instanceID string, startedAt time.Time, s Snapshot) CoordinatorSnapshot {
	hostname, _ := os.Hostname()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	now := time.Now()
	return CoordinatorSnapshot{
		InstanceID:     instanceID,
		Hostname:       hostname,
		PID:            os.Getpid(),
		UptimeSeconds:  int64(now.Sub(startedAt).Seconds()),
		PrecisePending: s.PrecisePending,
		QuickPending:   s.QuickPending,
		FreePrecise:    s.FreePrecise,
		FreeQuick:      s.FreeQuick,
		BusyWorkers:    s.BusyWorkers,
		InFlightJudges: s.InFlightJudges,
		MemoryRSSBytes: ms.Sys,
		NumGoroutine:   runtime.NumGoroutine(),
		StartedAt:      startedAt,
		UpdatedAt:      now,
	}
}

// SaveSnapshot stores the snapshot as JSON under its instance key, with a
// TTL so a crashed coordinator disappears from readers automatically.
func SaveSnapshot(ctx context.Context, client RedisClientRaw, snap CoordinatorSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return client.Set(ctx, CoordinatorSnapshotKeyPrefix+snap.InstanceID, data, CoordinatorSnapshotTTL).Err()
}
