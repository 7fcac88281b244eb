package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/multiversx/mx-chain-core-go/core/check"

	"github.com/patrick-commits/dark-site-metering/common"
	"github.com/patrick-commits/dark-site-metering/storage"
)

// Journal defines the interface for recording finished export runs
type Journal interface {
	// RecordRun persists one export run and prunes entries past retention
	RecordRun(ctx context.Context, run storage.ExportRun) error

	IsInterfaceNil() bool
}

// ArgsRunner defines the export runner arguments
type ArgsRunner struct {
	ExportDir string
	AccountID string
	AppID     string
	Journal   Journal
}

// runner turns one snapshot into a persisted daily export file and journals
// the run
type runner struct {
	exportDir string
	accountID string
	appID     string
	journal   Journal
	now       func() time.Time
}

// NewRunner creates a new export runner instance
func NewRunner(args ArgsRunner) (*runner, error) {
	if len(args.ExportDir) == 0 {
		return nil, errors.New("empty export directory")
	}
	if check.IfNil(args.Journal) {
		return nil, errors.New("nil export journal")
	}

	return &runner{
		exportDir: args.ExportDir,
		accountID: args.AccountID,
		appID:     args.AppID,
		journal:   args.Journal,
		now:       time.Now,
	}, nil
}

// Export projects the snapshot for the daily period, writes the export file
// and records the run. An export always completes and is written, possibly
// with fewer rows than expected; cycle-level failures are visible through the
// journaled status summary.
func (r *runner) Export(ctx context.Context, snap *common.Snapshot) (string, error) {
	when := r.now()
	period := PeriodForDay(when)

	rows := Project(snap, period, r.accountID, r.appID)

	path, err := WriteExport(r.exportDir, rows, when)
	if err != nil {
		return "", err
	}

	err = r.journal.RecordRun(ctx, storage.ExportRun{
		RanAt:         when.Unix(),
		FilePath:      path,
		RowCount:      len(rows),
		StatusSummary: statusSummary(snap),
	})
	if err != nil {
		// the export file itself is already safely on disk
		log.Warn("failed to journal export run", "path", path, "error", err)
	}

	return path, nil
}

func statusSummary(snap *common.Snapshot) string {
	summary := ""
	for _, kind := range common.AllKinds {
		status, ok := snap.Status[kind]
		if !ok {
			continue
		}
		if len(summary) > 0 {
			summary += ","
		}
		summary += fmt.Sprintf("%s=%s", kind, status.Status)
	}
	return summary
}

// IsInterfaceNil returns true if the value under the interface is nil
func (r *runner) IsInterfaceNil() bool {
	return r == nil
}
