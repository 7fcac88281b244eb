package api

import (
	"context"

	"github.com/patrick-commits/dark-site-metering/common"
	"github.com/patrick-commits/dark-site-metering/pricing"
	"github.com/patrick-commits/dark-site-metering/storage"
)

// MetricsProvider defines the interface for reading the served snapshot
type MetricsProvider interface {
	// Current returns the latest published snapshot or the empty sentinel
	Current() *common.Snapshot

	IsInterfaceNil() bool
}

// PricingStore defines the interface for the pricing catalog
type PricingStore interface {
	// Catalog returns a copy of the current pricing catalog
	Catalog() pricing.Catalog

	// AddRate inserts or replaces one product code
	AddRate(family string, code string, rate pricing.Rate) error

	// SetActive marks one catalog code as the applied rate for its family
	SetActive(family string, code string) error

	// ActiveRates returns the currently applied per-core and per-TiB rates
	ActiveRates() (pricing.Rate, bool, pricing.Rate, bool)

	IsInterfaceNil() bool
}

// ExportJournal defines the interface for listing journaled export runs
type ExportJournal interface {
	// RecentRuns returns up to limit journaled runs, newest first
	RecentRuns(ctx context.Context, limit int) ([]storage.ExportRun, error)

	IsInterfaceNil() bool
}

// ExportTrigger defines the interface for running the daily export on demand
type ExportTrigger interface {
	// TriggerExport drives a fresh collection cycle and writes the export file
	TriggerExport(ctx context.Context) (string, error)

	IsInterfaceNil() bool
}
