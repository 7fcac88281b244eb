package testsCommon

import "context"

// ExportTriggerStub -
type ExportTriggerStub struct {
	TriggerExportHandler func(ctx context.Context) (string, error)
}

// TriggerExport -
func (stub *ExportTriggerStub) TriggerExport(ctx context.Context) (string, error) {
	if stub.TriggerExportHandler != nil {
		return stub.TriggerExportHandler(ctx)
	}

	return "", nil
}

// IsInterfaceNil -
func (stub *ExportTriggerStub) IsInterfaceNil() bool {
	return stub == nil
}
