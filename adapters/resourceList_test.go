package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrick-commits/dark-site-metering/common"
)

type listRequest struct {
	Kind   string `json:"kind"`
	Length int    `json:"length"`
	Offset int    `json:"offset"`
}

func vmEntity(idx int) string {
	return fmt.Sprintf(`{
		"metadata": {"uuid": "vm-%d"},
		"spec": {
			"name": "vm-%02d",
			"cluster_reference": {"uuid": "cl-1", "name": "prod"},
			"resources": {
				"num_sockets": 2,
				"num_vcpus_per_socket": 2,
				"memory_size_mib": 8192,
				"disk_list": [
					{"disk_size_bytes": 53687091200},
					{"disk_size_mib": 10240}
				]
			}
		},
		"status": {"resources": {"power_state": "ON"}}
	}`, idx, idx)
}

// pagedVMServer serves numVMs entities in pages of the requested length and
// optionally fails every request at or past failAtOffset
func pagedVMServer(t *testing.T, numVMs int, failAtOffset int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/nutanix/v3/vms/list", r.URL.Path)

		var req listRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "vm", req.Kind)

		if failAtOffset >= 0 && req.Offset >= failAtOffset {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		entities := make([]string, 0)
		for i := req.Offset; i < req.Offset+req.Length && i < numVMs; i++ {
			entities = append(entities, vmEntity(i))
		}

		payload := fmt.Sprintf(`{"metadata": {"total_matches": %d}, "entities": [%s]}`,
			numVMs, joinEntities(entities))
		_, _ = w.Write([]byte(payload))
	}))
}

func joinEntities(entities []string) string {
	out := ""
	for i, e := range entities {
		if i > 0 {
			out += ","
		}
		out += e
	}
	return out
}

func TestResourceListAdapter_DrainsAllPages(t *testing.T) {
	t.Parallel()

	server := pagedVMServer(t, 5, -1)
	defer server.Close()

	adapter, err := NewResourceListAdapter(newTestClient(server.URL))
	require.NoError(t, err)
	require.False(t, adapter.IsInterfaceNil())
	assert.Equal(t, "resource-list", adapter.Name())
	adapter.pageLength = 2

	records, err := adapter.Fetch(context.Background(), testCredential(), common.KindVM)
	require.NoError(t, err)

	// 5 VMs, 4 records each: power_state, num_vcpus, memory_size_mib, disk total
	require.Len(t, records, 20)

	perUUID := make(map[string]int)
	for _, rec := range records {
		perUUID[rec.UUID]++
	}
	require.Len(t, perUUID, 5, "no duplicates across page boundaries")
	for uuid, count := range perUUID {
		assert.Equal(t, 4, count, uuid)
	}

	assert.Equal(t, "power_state", records[0].Metric)
	assert.Equal(t, "ON", records[0].Value)
	assert.Equal(t, "num_vcpus", records[1].Metric)
	assert.Equal(t, "4", records[1].Value)
	assert.Equal(t, "disk_size_bytes_total", records[3].Metric)
	// 50 GiB disk plus a 10240 MiB disk
	assert.Equal(t, "64424509440", records[3].Value)
	assert.Equal(t, []common.Label{
		{Key: "cluster_uuid", Value: "cl-1"},
		{Key: "cluster_name", Value: "prod"},
	}, records[0].Labels)
}

func TestResourceListAdapter_PartialDrainSurfacesObtainedRecords(t *testing.T) {
	t.Parallel()

	// pagination interrupted after page 2 of 5: page length 2, failure at offset 4
	server := pagedVMServer(t, 10, 4)
	defer server.Close()

	adapter, err := NewResourceListAdapter(newTestClient(server.URL))
	require.NoError(t, err)
	adapter.pageLength = 2

	records, err := adapter.Fetch(context.Background(), testCredential(), common.KindVM)
	require.True(t, errors.Is(err, common.ErrPartialDrain))

	// exactly the records from the two drained pages, nothing fabricated
	require.Len(t, records, 16)
	perUUID := make(map[string]int)
	for _, rec := range records {
		perUUID[rec.UUID]++
	}
	assert.Len(t, perUUID, 4)
}

func TestResourceListAdapter_FirstPageFailureReturnsNoRecords(t *testing.T) {
	t.Parallel()

	server := pagedVMServer(t, 10, 0)
	defer server.Close()

	adapter, err := NewResourceListAdapter(newTestClient(server.URL))
	require.NoError(t, err)

	records, err := adapter.Fetch(context.Background(), testCredential(), common.KindVM)
	assert.Nil(t, records)
	require.NotNil(t, err)
	assert.False(t, errors.Is(err, common.ErrPartialDrain))
}

func TestResourceListAdapter_HostsAndClusters(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/nutanix/v3/hosts/list":
			_, _ = w.Write([]byte(`{
				"metadata": {"total_matches": 1},
				"entities": [{
					"metadata": {"uuid": "host-1"},
					"spec": {"name": "node-01"},
					"status": {
						"cluster_reference": {"uuid": "cl-1", "name": "prod"},
						"resources": {
							"num_cpu_cores": 24,
							"num_cpu_sockets": 2,
							"hypervisor": {"cpu_usage_ppm": 150000, "memory_usage_ppm": 300000, "num_vms": 12}
						}
					}
				}]
			}`))
		case "/api/nutanix/v3/clusters/list":
			_, _ = w.Write([]byte(`{
				"metadata": {"total_matches": 1},
				"entities": [{
					"metadata": {"uuid": "cl-1"},
					"spec": {"name": "prod"},
					"status": {"resources": {"nodes": {"hypervisor_server_list": [{}, {}, {}]}}}
				}]
			}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	adapter, err := NewResourceListAdapter(newTestClient(server.URL))
	require.NoError(t, err)
	assert.Equal(t, []common.ResourceKind{common.KindCluster, common.KindVM, common.KindHost}, adapter.Kinds())

	hostRecords, err := adapter.Fetch(context.Background(), testCredential(), common.KindHost)
	require.NoError(t, err)
	require.Len(t, hostRecords, 5)
	assert.Equal(t, "num_cpu_cores", hostRecords[3].Metric)
	assert.Equal(t, "24", hostRecords[3].Value)

	clusterRecords, err := adapter.Fetch(context.Background(), testCredential(), common.KindCluster)
	require.NoError(t, err)
	require.Len(t, clusterRecords, 2)
	assert.Equal(t, "cluster_info", clusterRecords[0].Metric)
	assert.Equal(t, "num_nodes", clusterRecords[1].Metric)
	assert.Equal(t, "3", clusterRecords[1].Value)

	_, err = adapter.Fetch(context.Background(), testCredential(), common.KindFileServer)
	assert.True(t, errors.Is(err, errUnsupportedKind))
}
