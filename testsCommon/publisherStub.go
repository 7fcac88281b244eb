package testsCommon

import (
	"github.com/patrick-commits/dark-site-metering/common"
)

// PublisherStub -
type PublisherStub struct {
	PublishHandler func(snap *common.Snapshot)
	CurrentHandler func() *common.Snapshot
}

// Publish -
func (stub *PublisherStub) Publish(snap *common.Snapshot) {
	if stub.PublishHandler != nil {
		stub.PublishHandler(snap)
	}
}

// Current -
func (stub *PublisherStub) Current() *common.Snapshot {
	if stub.CurrentHandler != nil {
		return stub.CurrentHandler()
	}

	return common.NewEmptySnapshot()
}

// IsInterfaceNil -
func (stub *PublisherStub) IsInterfaceNil() bool {
	return stub == nil
}
