package aggregator

import (
	"context"

	"github.com/patrick-commits/dark-site-metering/adapters"
	"github.com/patrick-commits/dark-site-metering/common"
)

// Session defines the interface for acquiring control-plane credentials
type Session interface {
	// Acquire returns a usable credential, transparently re-authenticating when
	// the held one is expired or was rejected
	Acquire(ctx context.Context) (*common.Credential, error)

	// Invalidate forces re-authentication on the next Acquire call
	Invalidate(reason string)

	IsInterfaceNil() bool
}

// Adapter defines the interface of one remote API generation
type Adapter interface {
	// Name returns the adapter's generation name
	Name() string

	// Kinds returns the resource kinds this adapter can populate
	Kinds() []common.ResourceKind

	// Fetch retrieves the adapter-local records for one resource kind, draining
	// pagination to exhaustion and wrapping mid-drain aborts with ErrPartialDrain
	Fetch(ctx context.Context, cred *common.Credential, kind common.ResourceKind) ([]adapters.Record, error)

	IsInterfaceNil() bool
}

// Normalizer defines the interface for mapping adapter records into the
// canonical metric model
type Normalizer interface {
	// Normalize maps one adapter record to zero or one canonical metric record
	Normalize(rec adapters.Record) (common.MetricRecord, bool)

	// Authority returns the generation whose value wins for a canonical metric
	// when two adapters disagree
	Authority(metric string) adapters.Generation

	IsInterfaceNil() bool
}

// RequestCounter exposes the per-endpoint request counters accumulated by the
// shared control-plane client
type RequestCounter interface {
	TakeCounters() map[string]int
}
