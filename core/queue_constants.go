package core

import "time"

// Redis key prefix and TTL for the optional coordinator status-snapshot
// mirror (component used by multi-instance operator dashboards).
const (
	CoordinatorSnapshotKeyPrefix = "coordinator:snapshot:"
	CoordinatorSnapshotTTL       = 15 * time.Second
)
