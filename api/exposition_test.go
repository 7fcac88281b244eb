package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/patrick-commits/dark-site-metering/common"
)

func testSnapshot() *common.Snapshot {
	return &common.Snapshot{
		ID:          "snap-1",
		CollectedAt: time.Date(2026, 8, 29, 1, 0, 0, 0, time.UTC),
		Records: []common.MetricRecord{
			{
				Identity: common.Identity{Kind: common.KindVM, UUID: "vm-1", Name: "web-01"},
				Metric:   "nutanix_vm_cpu_count",
				Value:    4,
				Unit:     "count",
				Labels: []common.Label{
					{Key: "vm_name", Value: "web-01"},
					{Key: "vm_uuid", Value: "vm-1"},
				},
			},
			{
				Identity: common.Identity{Kind: common.KindCluster, UUID: "cl-1", Name: "prod"},
				Metric:   "nutanix_cluster_storage_usage_bytes",
				Value:    6047313952768,
				Unit:     "bytes",
				Labels: []common.Label{
					{Key: "cluster_name", Value: "prod"},
					{Key: "cluster_uuid", Value: "cl-1"},
				},
			},
		},
		Status: map[common.ResourceKind]common.KindStatus{
			common.KindVM:      {Status: common.StatusComplete},
			common.KindCluster: {Status: common.StatusPartial, Err: "drain aborted"},
		},
		Counters: common.CycleCounters{
			Requests:       map[string]int{"/api/nutanix/v3/vms/list|success": 3},
			DroppedRecords: 2,
		},
	}
}

func TestRenderExposition(t *testing.T) {
	t.Parallel()

	body := renderExposition(testSnapshot(), 0.04, true, 0.025, true)

	assert.Contains(t, body, `nutanix_vm_cpu_count{vm_name="web-01",vm_uuid="vm-1"} 4`+"\n")
	assert.Contains(t, body, `nutanix_cluster_storage_usage_bytes{cluster_name="prod",cluster_uuid="cl-1"} 6.047313952768e+12`+"\n")
	assert.Contains(t, body, `nutanix_exporter_api_requests_total{endpoint="/api/nutanix/v3/vms/list",status="success"} 3`+"\n")
	assert.Contains(t, body, "nutanix_exporter_dropped_records_total 2\n")
	assert.Contains(t, body, `nutanix_exporter_kind_complete{kind="VM",status="Complete"} 1`+"\n")
	assert.Contains(t, body, `nutanix_exporter_kind_complete{kind="Cluster",status="Partial"} 0`+"\n")
	assert.Contains(t, body, "nutanix_pricing_active_nci_rate 0.04\n")
	assert.Contains(t, body, "nutanix_pricing_active_nus_rate 0.025\n")
}

func TestRenderExposition_NeverCollectedYieldsEmptyBody(t *testing.T) {
	t.Parallel()

	body := renderExposition(common.NewEmptySnapshot(), 0, false, 0, false)
	assert.Equal(t, "", body)
}

func TestRenderExposition_DeterministicForOneSnapshot(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	snap.Counters.Requests = map[string]int{
		"/api/nutanix/v3/vms/list|success":   3,
		"/api/nutanix/v2.0/clusters|success": 1,
		"/api/nutanix/v2.0/clusters|error":   1,
	}

	first := renderExposition(snap, 0, false, 0, false)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, renderExposition(snap, 0, false, 0, false))
	}
}

func TestRenderExposition_EscapesLabelValues(t *testing.T) {
	t.Parallel()

	snap := &common.Snapshot{
		ID: "snap-1",
		Records: []common.MetricRecord{
			{
				Metric: "nutanix_vm_cpu_count",
				Value:  1,
				Labels: []common.Label{{Key: "vm_name", Value: `we"ird\name`}},
			},
		},
		Status: map[common.ResourceKind]common.KindStatus{},
	}

	body := renderExposition(snap, 0, false, 0, false)
	assert.Contains(t, body, `nutanix_vm_cpu_count{vm_name="we\"ird\\name"} 1`+"\n")
}
