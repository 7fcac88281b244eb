package registry

import (
	"sync/atomic"

	logger "github.com/multiversx/mx-chain-logger-go"

	"github.com/patrick-commits/dark-site-metering/common"
)

var log = logger.GetOrCreate("registry")

// registry holds the most recent successfully-aggregated snapshot for serving.
// Publish swaps the served snapshot atomically: readers never observe a record
// from one cycle mixed with a status flag from another.
type registry struct {
	current atomic.Pointer[common.Snapshot]
}

// NewRegistry creates a new registry, pre-seeded with the "never collected"
// sentinel so Current is always safe to call
func NewRegistry() *registry {
	r := &registry{}
	r.current.Store(common.NewEmptySnapshot())

	return r
}

// Publish atomically replaces the served snapshot. Nil snapshots are ignored.
func (r *registry) Publish(snap *common.Snapshot) {
	if snap == nil {
		return
	}

	r.current.Store(snap)
	log.Debug("published snapshot", "id", snap.ID, "records", len(snap.Records))
}

// Current returns the latest published snapshot, or the empty sentinel before
// the first successful cycle
func (r *registry) Current() *common.Snapshot {
	return r.current.Load()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (r *registry) IsInterfaceNil() bool {
	return r == nil
}
