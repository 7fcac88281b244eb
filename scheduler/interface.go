package scheduler

import (
	"context"

	"github.com/patrick-commits/dark-site-metering/common"
)

// Collector defines the interface for running one full collection cycle
type Collector interface {
	// Collect runs one collection cycle and always returns a snapshot, however
	// degraded
	Collect(ctx context.Context) *common.Snapshot

	IsInterfaceNil() bool
}

// Publisher defines the interface for the serving-side snapshot registry
type Publisher interface {
	// Publish atomically replaces the served snapshot
	Publish(snap *common.Snapshot)

	// Current returns the latest published snapshot
	Current() *common.Snapshot

	IsInterfaceNil() bool
}

// Exporter defines the interface for persisting one snapshot's billing export
type Exporter interface {
	// Export projects, writes and journals the daily export file
	Export(ctx context.Context, snap *common.Snapshot) (string, error)

	IsInterfaceNil() bool
}
