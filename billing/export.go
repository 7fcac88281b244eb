package billing

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/patrick-commits/dark-site-metering/common"
)

const exportFilePattern = "metering_export_%s.tsv"

// WriteExport persists the billing rows as a tab-separated file named after
// the trigger timestamp. Files are written through a temp file and renamed, so
// a shutdown mid-export never leaves a half-written file; an existing file is
// never overwritten or appended.
func WriteExport(dir string, rows []common.BillingRow, when time.Time) (string, error) {
	err := os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf(exportFilePattern, when.Format("20060102_150405")))
	_, err = os.Stat(path)
	if err == nil {
		return "", fmt.Errorf("export file already exists: %s", path)
	}

	tmp, err := os.CreateTemp(dir, ".metering_export_*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp export file: %w", err)
	}
	tmpPath := tmp.Name()

	writer := csv.NewWriter(tmp)
	writer.Comma = '\t'

	err = writer.Write(common.BillingColumns)
	if err == nil {
		for _, row := range rows {
			err = writer.Write(row.Fields())
			if err != nil {
				break
			}
		}
	}
	writer.Flush()
	if err == nil {
		err = writer.Error()
	}

	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to finalize export file: %w", err)
	}

	log.Info("billing export written", "path", path, "rows", len(rows))

	return path, nil
}

// ReadExport parses a previously written export file back into its ordered
// billing rows
func ReadExport(path string) ([]common.BillingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)
	reader.Comma = '\t'

	lines, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse export file: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("export file %s is empty", path)
	}

	var rows []common.BillingRow
	for _, fields := range lines[1:] {
		if len(fields) != len(common.BillingColumns) {
			return nil, fmt.Errorf("malformed export line with %d fields", len(fields))
		}

		qty, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed qty field: %w", err)
		}
		sno, err := strconv.Atoi(fields[6])
		if err != nil {
			return nil, fmt.Errorf("malformed sno field: %w", err)
		}

		rows = append(rows, common.BillingRow{
			AccountID:   fields[0],
			Qty:         qty,
			StartDate:   fields[2],
			EndDate:     fields[3],
			MeteredItem: fields[4],
			AppID:       fields[5],
			SNo:         sno,
			FQDN:        fields[7],
			Type:        fields[8],
			Description: fields[9],
			GUID:        fields[10],
		})
	}

	return rows, nil
}
