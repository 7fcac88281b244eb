package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrick-commits/dark-site-metering/common"
)

const legacyClustersPayload = `{
	"entities": [
		{
			"uuid": "cl-1",
			"name": "prod",
			"num_nodes": 4,
			"num_cpu_cores": 96,
			"stats": {
				"hypervisor_cpu_usage_ppm": "421337",
				"hypervisor_memory_usage_ppm": "618000"
			},
			"usage_stats": {
				"storage.usage_bytes": "6047313952768",
				"storage.capacity_bytes": "10995116277760",
				"storage.free_bytes": "4947802325000"
			}
		},
		{
			"cluster_uuid": "cl-2",
			"name": "dr",
			"num_nodes": 3
		}
	]
}`

func TestLegacyStatsAdapter_FetchClusters(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/nutanix/v2.0/clusters", r.URL.Path)
		_, _ = w.Write([]byte(legacyClustersPayload))
	}))
	defer server.Close()

	adapter, err := NewLegacyStatsAdapter(newTestClient(server.URL))
	require.NoError(t, err)
	require.False(t, adapter.IsInterfaceNil())
	assert.Equal(t, "legacy-stats", adapter.Name())
	assert.Equal(t, []common.ResourceKind{common.KindCluster, common.KindStorageContainer}, adapter.Kinds())

	records, err := adapter.Fetch(context.Background(), testCredential(), common.KindCluster)
	require.NoError(t, err)
	require.Len(t, records, 8)

	// the first cluster yields one record per present wire field
	assert.Equal(t, Record{
		Kind:   common.KindCluster,
		UUID:   "cl-1",
		Name:   "prod",
		Metric: "num_nodes",
		Value:  "4",
		Source: GenLegacyStats,
	}, records[0])

	// the second cluster only exposes the fallback uuid field and the node count
	assert.Equal(t, "cl-2", records[7].UUID)
	assert.Equal(t, "num_nodes", records[7].Metric)
	assert.Equal(t, "3", records[7].Value)
}

func TestLegacyStatsAdapter_FetchContainers(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/nutanix/v2.0/storage_containers", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"entities": [
				{
					"storage_container_uuid": "sc-1",
					"name": "default-container",
					"usage_stats": {
						"storage.user_unreserved_usage_bytes": "123456789",
						"storage.user_capacity_bytes": "987654321"
					}
				}
			]
		}`))
	}))
	defer server.Close()

	adapter, err := NewLegacyStatsAdapter(newTestClient(server.URL))
	require.NoError(t, err)

	records, err := adapter.Fetch(context.Background(), testCredential(), common.KindStorageContainer)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "storage.user_unreserved_usage_bytes", records[0].Metric)
	assert.Equal(t, "123456789", records[0].Value)
	assert.Equal(t, common.KindStorageContainer, records[0].Kind)
}

func TestLegacyStatsAdapter_Errors(t *testing.T) {
	t.Parallel()

	t.Run("nil client", func(t *testing.T) {
		adapter, err := NewLegacyStatsAdapter(nil)
		assert.Nil(t, adapter)
		assert.True(t, errors.Is(err, errNilClient))
	})
	t.Run("unsupported kind", func(t *testing.T) {
		adapter, _ := NewLegacyStatsAdapter(newTestClient("http://localhost:59999"))
		_, err := adapter.Fetch(context.Background(), testCredential(), common.KindVM)
		assert.True(t, errors.Is(err, errUnsupportedKind))
	})
	t.Run("server failure propagates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		adapter, _ := NewLegacyStatsAdapter(newTestClient(server.URL))
		records, err := adapter.Fetch(context.Background(), testCredential(), common.KindCluster)
		assert.Nil(t, records)
		assert.NotNil(t, err)
	})
}
