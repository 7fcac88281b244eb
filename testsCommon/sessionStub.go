package testsCommon

import (
	"context"

	"github.com/patrick-commits/dark-site-metering/common"
)

// SessionStub -
type SessionStub struct {
	AcquireHandler    func(ctx context.Context) (*common.Credential, error)
	InvalidateHandler func(reason string)
}

// Acquire -
func (stub *SessionStub) Acquire(ctx context.Context) (*common.Credential, error) {
	if stub.AcquireHandler != nil {
		return stub.AcquireHandler(ctx)
	}

	return &common.Credential{Cookie: "stub-cookie"}, nil
}

// Invalidate -
func (stub *SessionStub) Invalidate(reason string) {
	if stub.InvalidateHandler != nil {
		stub.InvalidateHandler(reason)
	}
}

// IsInterfaceNil -
func (stub *SessionStub) IsInterfaceNil() bool {
	return stub == nil
}
