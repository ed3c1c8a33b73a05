package core

import (
	"context"
	"encoding/json"
)

// SnapshotReader scans Redis for every live coordinator instance's
// published status snapshot. Used by the operator dashboard in a
// multi-instance deployment.
type SnapshotReader struct {
	redis RedisClientRaw
}

func NewSnapshotReader(redis RedisClientRaw) *SnapshotReader {
	return &SnapshotReader{redis: redis}
}

// Instances returns every snapshot currently unexpired in Redis.
func (r *SnapshotReader) Instances(ctx context.Context) ([]CoordinatorSnapshot, error) {
	if r.redis == nil {
		return nil, nil
	}
	iter := r.redis.Scan(ctx, 0, CoordinatorSnapshotKeyPrefix+"*", 100).Iterator()
	var res []CoordinatorSnapshot
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := r.redis.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var snap CoordinatorSnapshot
		if err := json.Unmarshal([]byte(val), &snap); err != nil {
			continue
		}
		res = append(res, snap)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
