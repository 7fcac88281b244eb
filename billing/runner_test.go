package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrick-commits/dark-site-metering/common"
	"github.com/patrick-commits/dark-site-metering/storage"
	"github.com/patrick-commits/dark-site-metering/testsCommon"
)

func TestNewRunner(t *testing.T) {
	t.Parallel()

	t.Run("empty export dir", func(t *testing.T) {
		r, err := NewRunner(ArgsRunner{Journal: &testsCommon.JournalStub{}})
		assert.Nil(t, r)
		assert.NotNil(t, err)
	})
	t.Run("nil journal", func(t *testing.T) {
		r, err := NewRunner(ArgsRunner{ExportDir: t.TempDir()})
		assert.Nil(t, r)
		assert.NotNil(t, err)
	})
	t.Run("should work", func(t *testing.T) {
		r, err := NewRunner(ArgsRunner{ExportDir: t.TempDir(), Journal: &testsCommon.JournalStub{}})
		require.NoError(t, err)
		assert.False(t, r.IsInterfaceNil())
	})
}

func TestRunner_ExportWritesFileAndJournalsRun(t *testing.T) {
	t.Parallel()

	var recorded []storage.ExportRun
	journal := &testsCommon.JournalStub{
		RecordRunHandler: func(_ context.Context, run storage.ExportRun) error {
			recorded = append(recorded, run)
			return nil
		},
	}

	r, err := NewRunner(ArgsRunner{
		ExportDir: t.TempDir(),
		AccountID: "123456",
		AppID:     "app-1",
		Journal:   journal,
	})
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2026, 8, 29, 1, 0, 5, 0, time.UTC) }

	snap := completeSnapshot(
		vmMetric("vm-1", "web-01", "prod", "nutanix_vm_memory_bytes", 8589934592),
		fsMetric("fs-1", "files-prod", 6047313952768),
	)
	snap.Status[common.KindStorageContainer] = common.KindStatus{Status: common.StatusFailed, Err: "400"}

	path, err := r.Export(context.Background(), snap)
	require.NoError(t, err)

	rows, err := ReadExport(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Len(t, recorded, 1)
	assert.Equal(t, path, recorded[0].FilePath)
	assert.Equal(t, 2, recorded[0].RowCount)
	assert.Equal(t, time.Date(2026, 8, 29, 1, 0, 5, 0, time.UTC).Unix(), recorded[0].RanAt)
	assert.Contains(t, recorded[0].StatusSummary, "StorageContainer=Failed")
	assert.Contains(t, recorded[0].StatusSummary, "VM=Complete")
}

func TestRunner_JournalFailureDoesNotFailTheExport(t *testing.T) {
	t.Parallel()

	journal := &testsCommon.JournalStub{
		RecordRunHandler: func(_ context.Context, _ storage.ExportRun) error {
			return errors.New("database is locked")
		},
	}

	r, err := NewRunner(ArgsRunner{
		ExportDir: t.TempDir(),
		AccountID: "123456",
		AppID:     "app-1",
		Journal:   journal,
	})
	require.NoError(t, err)

	path, err := r.Export(context.Background(), completeSnapshot())
	require.NoError(t, err)
	assert.NotEmpty(t, path)
}
