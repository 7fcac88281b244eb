package adapters

import "github.com/patrick-commits/dark-site-metering/common"

// Generation identifies one remote API generation. Selected by static
// configuration, never by runtime type inspection.
type Generation string

const (
	GenLegacyStats  Generation = "legacy-stats"
	GenResourceList Generation = "resource-list"
	GenFileService  Generation = "file-service"
)

// Record is one adapter-local observation, still in the wire-field vocabulary
// of its generation. The normalizer maps it into the canonical model.
type Record struct {
	Kind   common.ResourceKind
	UUID   string
	Name   string
	Metric string
	Value  string
	Labels []common.Label
	Source Generation
}
