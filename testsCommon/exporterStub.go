package testsCommon

import (
	"context"

	"github.com/patrick-commits/dark-site-metering/common"
)

// ExporterStub -
type ExporterStub struct {
	ExportHandler func(ctx context.Context, snap *common.Snapshot) (string, error)
}

// Export -
func (stub *ExporterStub) Export(ctx context.Context, snap *common.Snapshot) (string, error) {
	if stub.ExportHandler != nil {
		return stub.ExportHandler(ctx, snap)
	}

	return "", nil
}

// IsInterfaceNil -
func (stub *ExporterStub) IsInterfaceNil() bool {
	return stub == nil
}
