package testsCommon

import (
	"context"

	"github.com/patrick-commits/dark-site-metering/storage"
)

// JournalStub -
type JournalStub struct {
	RecordRunHandler  func(ctx context.Context, run storage.ExportRun) error
	RecentRunsHandler func(ctx context.Context, limit int) ([]storage.ExportRun, error)
	CloseHandler      func() error
}

// RecordRun -
func (stub *JournalStub) RecordRun(ctx context.Context, run storage.ExportRun) error {
	if stub.RecordRunHandler != nil {
		return stub.RecordRunHandler(ctx, run)
	}

	return nil
}

// RecentRuns -
func (stub *JournalStub) RecentRuns(ctx context.Context, limit int) ([]storage.ExportRun, error) {
	if stub.RecentRunsHandler != nil {
		return stub.RecentRunsHandler(ctx, limit)
	}

	return make([]storage.ExportRun, 0), nil
}

// Close -
func (stub *JournalStub) Close() error {
	if stub.CloseHandler != nil {
		return stub.CloseHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *JournalStub) IsInterfaceNil() bool {
	return stub == nil
}
