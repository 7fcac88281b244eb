package testsCommon

import (
	"context"

	"github.com/patrick-commits/dark-site-metering/common"
)

// CollectorStub -
type CollectorStub struct {
	CollectHandler func(ctx context.Context) *common.Snapshot
}

// Collect -
func (stub *CollectorStub) Collect(ctx context.Context) *common.Snapshot {
	if stub.CollectHandler != nil {
		return stub.CollectHandler(ctx)
	}

	return common.NewEmptySnapshot()
}

// IsInterfaceNil -
func (stub *CollectorStub) IsInterfaceNil() bool {
	return stub == nil
}
