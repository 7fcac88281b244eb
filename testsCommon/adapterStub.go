package testsCommon

import (
	"context"

	"github.com/patrick-commits/dark-site-metering/adapters"
	"github.com/patrick-commits/dark-site-metering/common"
)

// AdapterStub -
type AdapterStub struct {
	NameHandler  func() string
	KindsHandler func() []common.ResourceKind
	FetchHandler func(ctx context.Context, cred *common.Credential, kind common.ResourceKind) ([]adapters.Record, error)
}

// Name -
func (stub *AdapterStub) Name() string {
	if stub.NameHandler != nil {
		return stub.NameHandler()
	}

	return "stub-adapter"
}

// Kinds -
func (stub *AdapterStub) Kinds() []common.ResourceKind {
	if stub.KindsHandler != nil {
		return stub.KindsHandler()
	}

	return nil
}

// Fetch -
func (stub *AdapterStub) Fetch(ctx context.Context, cred *common.Credential, kind common.ResourceKind) ([]adapters.Record, error) {
	if stub.FetchHandler != nil {
		return stub.FetchHandler(ctx, cred, kind)
	}

	return nil, nil
}

// IsInterfaceNil -
func (stub *AdapterStub) IsInterfaceNil() bool {
	return stub == nil
}
