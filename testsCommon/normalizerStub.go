package testsCommon

import (
	"github.com/patrick-commits/dark-site-metering/adapters"
	"github.com/patrick-commits/dark-site-metering/common"
)

// NormalizerStub -
type NormalizerStub struct {
	NormalizeHandler func(rec adapters.Record) (common.MetricRecord, bool)
	AuthorityHandler func(metric string) adapters.Generation
}

// Normalize -
func (stub *NormalizerStub) Normalize(rec adapters.Record) (common.MetricRecord, bool) {
	if stub.NormalizeHandler != nil {
		return stub.NormalizeHandler(rec)
	}

	return common.MetricRecord{}, false
}

// Authority -
func (stub *NormalizerStub) Authority(metric string) adapters.Generation {
	if stub.AuthorityHandler != nil {
		return stub.AuthorityHandler(metric)
	}

	return adapters.GenLegacyStats
}

// IsInterfaceNil -
func (stub *NormalizerStub) IsInterfaceNil() bool {
	return stub == nil
}
