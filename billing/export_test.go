package billing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrick-commits/dark-site-metering/common"
)

func testRows() []common.BillingRow {
	return []common.BillingRow{
		{
			AccountID:   "prod",
			Qty:         8,
			StartDate:   "2026-08-28",
			EndDate:     "2026-08-29",
			MeteredItem: "Memory_GB",
			AppID:       "app-1",
			SNo:         1,
			FQDN:        "web-01",
			Type:        "VM",
			Description: "Memory for VM web-01",
			GUID:        "vm-1",
		},
		{
			AccountID:   "123456",
			Qty:         5.5,
			StartDate:   "2026-08-28",
			EndDate:     "2026-08-29",
			MeteredItem: "Files_TiB",
			AppID:       "app-1",
			SNo:         2,
			FQDN:        "files-prod",
			Type:        "FileServer",
			Description: "Files consumed storage for files-prod",
			GUID:        "fs-1",
		},
	}
}

func TestWriteExport_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	when := time.Date(2026, 8, 29, 1, 0, 5, 0, time.UTC)

	rows := testRows()
	path, err := WriteExport(dir, rows, when)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "metering_export_20260829_010005.tsv"), path)

	// parsing the file back recovers the exact ordered row sequence
	parsed, err := ReadExport(path)
	require.NoError(t, err)
	assert.Equal(t, rows, parsed)
}

func TestWriteExport_FileContents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WriteExport(dir, testRows(), time.Date(2026, 8, 29, 1, 0, 5, 0, time.UTC))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "accountId\tqty\tstartDate\tendDate\tmeteredItem\tappid\tsno\tfqdn\ttype\tdescription\tguid", lines[0])
	assert.Equal(t, "prod\t8\t2026-08-28\t2026-08-29\tMemory_GB\tapp-1\t1\tweb-01\tVM\tMemory for VM web-01\tvm-1", lines[1])
	assert.Equal(t, "123456\t5.5\t2026-08-28\t2026-08-29\tFiles_TiB\tapp-1\t2\tfiles-prod\tFileServer\tFiles consumed storage for files-prod\tfs-1", lines[2])
}

func TestWriteExport_NeverOverwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	when := time.Date(2026, 8, 29, 1, 0, 5, 0, time.UTC)

	_, err := WriteExport(dir, testRows(), when)
	require.NoError(t, err)

	// a second run at the same trigger timestamp must refuse to touch the file
	_, err = WriteExport(dir, nil, when)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestWriteExport_EmptyRowsStillWritesHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WriteExport(dir, nil, time.Date(2026, 8, 29, 1, 0, 5, 0, time.UTC))
	require.NoError(t, err)

	parsed, err := ReadExport(path)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

func TestWriteExport_NoTempFilesLeftBehind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := WriteExport(dir, testRows(), time.Date(2026, 8, 29, 1, 0, 5, 0, time.UTC))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "metering_export_20260829_010005.tsv", entries[0].Name())
}

func TestReadExport_MalformedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.tsv")
	require.NoError(t, os.WriteFile(path, []byte("accountId\tqty\nonly-two\tfields\n"), 0o644))

	_, err := ReadExport(path)
	assert.NotNil(t, err)
}
