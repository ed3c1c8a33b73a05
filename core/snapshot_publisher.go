package core

import (
	"context"
	"time"
)

// SnapshotPublisher mirrors the coordinator's Snapshot hook into Redis on a
// fixed interval, so an operator dashboard can watch more than one
// coordinator instance without talking to either one's status port
// directly.
type SnapshotPublisher struct {
	instanceID string
	startedAt  time.Time
	client     RedisClientRaw
	latest     chan Snapshot
}

func NewSnapshotPublisher(instanceID string, client RedisClientRaw) *SnapshotPublisher {
	return &SnapshotPublisher{
		instanceID: instanceID,
		startedAt:  time.Now(),
		client:     client,
		latest:     make(chan Snapshot, 1),
	}
}

// Publish is the Coordinator.OnSnapshot callback: it never blocks the
// scheduler goroutine, it just replaces whatever snapshot is pending.
func (p *SnapshotPublisher) Publish(s Snapshot) {
	select {
	case <-p.latest:
	default:
	}
	p.latest <- s
}

// Run flushes the most recent snapshot to Redis every 5 seconds until ctx
// is canceled.
func (p *SnapshotPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var last Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-p.latest:
			last = s
		case <-ticker.C:
			snap := newCoordinatorSnapshot(p.instanceID, p.startedAt, last)
			_ = SaveSnapshot(ctx, p.client, snap)
		}
	}
}
