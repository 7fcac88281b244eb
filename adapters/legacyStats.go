package adapters

import (
	"context"
	"fmt"

	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/tidwall/gjson"

	"github.com/patrick-commits/dark-site-metering/common"
)

var log = logger.GetOrCreate("adapters")

const (
	legacyClustersPath   = "/api/nutanix/v2.0/clusters"
	legacyContainersPath = "/api/nutanix/v2.0/storage_containers"
)

// legacyStatsAdapter reads the oldest API generation: flat entity lists with
// ppm-scaled utilization stats and dotted usage_stats byte counters. This
// generation authenticates with the session cookie.
type legacyStatsAdapter struct {
	client *Client
}

// NewLegacyStatsAdapter creates a new legacy-stats adapter instance
func NewLegacyStatsAdapter(client *Client) (*legacyStatsAdapter, error) {
	if client.IsInterfaceNil() {
		return nil, errNilClient
	}

	return &legacyStatsAdapter{client: client}, nil
}

// Name returns the adapter's generation name
func (a *legacyStatsAdapter) Name() string {
	return string(GenLegacyStats)
}

// Kinds returns the resource kinds this adapter can populate
func (a *legacyStatsAdapter) Kinds() []common.ResourceKind {
	return []common.ResourceKind{common.KindCluster, common.KindStorageContainer}
}

// Fetch retrieves the adapter-local records for one resource kind
func (a *legacyStatsAdapter) Fetch(ctx context.Context, cred *common.Credential, kind common.ResourceKind) ([]Record, error) {
	switch kind {
	case common.KindCluster:
		return a.fetchClusters(ctx, cred)
	case common.KindStorageContainer:
		return a.fetchContainers(ctx, cred)
	default:
		return nil, fmt.Errorf("%w: %s does not serve kind %s", errUnsupportedKind, a.Name(), kind)
	}
}

func (a *legacyStatsAdapter) fetchClusters(ctx context.Context, cred *common.Credential) ([]Record, error) {
	body, err := a.client.Get(ctx, cred, legacyClustersPath)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, entity := range gjson.GetBytes(body, "entities").Array() {
		uuid := entity.Get("uuid").String()
		if len(uuid) == 0 {
			uuid = entity.Get("cluster_uuid").String()
		}
		name := entity.Get("name").String()

		emit := func(metric string, value gjson.Result) {
			if !value.Exists() {
				return
			}
			records = append(records, Record{
				Kind:   common.KindCluster,
				UUID:   uuid,
				Name:   name,
				Metric: metric,
				Value:  value.String(),
				Source: GenLegacyStats,
			})
		}

		emit("num_nodes", entity.Get("num_nodes"))
		emit("num_cpu_cores", entity.Get("num_cpu_cores"))
		emit("hypervisor_cpu_usage_ppm", entity.Get("stats.hypervisor_cpu_usage_ppm"))
		emit("hypervisor_memory_usage_ppm", entity.Get("stats.hypervisor_memory_usage_ppm"))
		emit("storage.usage_bytes", entity.Get("usage_stats.storage\\.usage_bytes"))
		emit("storage.capacity_bytes", entity.Get("usage_stats.storage\\.capacity_bytes"))
		emit("storage.free_bytes", entity.Get("usage_stats.storage\\.free_bytes"))
	}

	log.Debug("fetched legacy cluster stats", "records", len(records))

	return records, nil
}

func (a *legacyStatsAdapter) fetchContainers(ctx context.Context, cred *common.Credential) ([]Record, error) {
	body, err := a.client.Get(ctx, cred, legacyContainersPath)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, entity := range gjson.GetBytes(body, "entities").Array() {
		uuid := entity.Get("storage_container_uuid").String()
		name := entity.Get("name").String()

		emit := func(metric string, value gjson.Result) {
			if !value.Exists() {
				return
			}
			records = append(records, Record{
				Kind:   common.KindStorageContainer,
				UUID:   uuid,
				Name:   name,
				Metric: metric,
				Value:  value.String(),
				Source: GenLegacyStats,
			})
		}

		emit("storage.user_unreserved_usage_bytes", entity.Get("usage_stats.storage\\.user_unreserved_usage_bytes"))
		emit("storage.user_capacity_bytes", entity.Get("usage_stats.storage\\.user_capacity_bytes"))
	}

	log.Debug("fetched legacy storage containers", "records", len(records))

	return records, nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (a *legacyStatsAdapter) IsInterfaceNil() bool {
	return a == nil
}
