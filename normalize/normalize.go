package normalize

import (
	"strconv"
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"

	"github.com/patrick-commits/dark-site-metering/adapters"
	"github.com/patrick-commits/dark-site-metering/common"
)

var log = logger.GetOrCreate("normalize")

type conversion int

const (
	convNone conversion = iota
	convPpmToPercent
	convMibToBytes
	convPowerState
)

type rule struct {
	metric string
	unit   string
	conv   conversion
}

type fieldKey struct {
	kind  common.ResourceKind
	field string
}

// Wire-field to canonical-metric mapping. Byte-valued fields stay raw bytes;
// unit conversion to GB/TiB happens only in the billing projector.
var rules = map[fieldKey]rule{
	{common.KindCluster, "cluster_info"}:                {"nutanix_cluster_info", "gauge", convNone},
	{common.KindCluster, "num_nodes"}:                   {"nutanix_cluster_node_count", "count", convNone},
	{common.KindCluster, "num_cpu_cores"}:               {"nutanix_cluster_physical_cpu_cores", "count", convNone},
	{common.KindCluster, "hypervisor_cpu_usage_ppm"}:    {"nutanix_cluster_cpu_usage_percent", "percent", convPpmToPercent},
	{common.KindCluster, "hypervisor_memory_usage_ppm"}: {"nutanix_cluster_memory_usage_percent", "percent", convPpmToPercent},
	{common.KindCluster, "storage.usage_bytes"}:         {"nutanix_cluster_storage_usage_bytes", "bytes", convNone},
	{common.KindCluster, "storage.capacity_bytes"}:      {"nutanix_cluster_storage_capacity_bytes", "bytes", convNone},
	{common.KindCluster, "storage.free_bytes"}:          {"nutanix_cluster_storage_free_bytes", "bytes", convNone},

	{common.KindVM, "power_state"}:           {"nutanix_vm_power_state", "gauge", convPowerState},
	{common.KindVM, "num_vcpus"}:             {"nutanix_vm_cpu_count", "count", convNone},
	{common.KindVM, "memory_size_mib"}:       {"nutanix_vm_memory_bytes", "bytes", convMibToBytes},
	{common.KindVM, "disk_size_bytes_total"}: {"nutanix_vm_disk_size_bytes", "bytes", convNone},

	{common.KindHost, "hypervisor_cpu_usage_ppm"}:    {"nutanix_host_cpu_usage_percent", "percent", convPpmToPercent},
	{common.KindHost, "hypervisor_memory_usage_ppm"}: {"nutanix_host_memory_usage_percent", "percent", convPpmToPercent},
	{common.KindHost, "num_vms"}:                     {"nutanix_host_num_vms", "count", convNone},
	{common.KindHost, "num_cpu_cores"}:               {"nutanix_host_physical_cpu_cores", "count", convNone},
	{common.KindHost, "num_cpu_sockets"}:             {"nutanix_host_cpu_sockets", "count", convNone},

	{common.KindStorageContainer, "storage.user_unreserved_usage_bytes"}: {"nutanix_storage_container_usage_bytes", "bytes", convNone},
	{common.KindStorageContainer, "storage.user_capacity_bytes"}:         {"nutanix_storage_container_capacity_bytes", "bytes", convNone},

	{common.KindFileServer, "storageCapacityBytes"}:   {"nutanix_file_server_capacity_bytes", "bytes", convNone},
	{common.KindFileServer, "usedCapacityBytes"}:      {"nutanix_file_server_used_bytes", "bytes", convNone},
	{common.KindFileServer, "availableCapacityBytes"}: {"nutanix_file_server_available_bytes", "bytes", convNone},
	{common.KindFileServer, "numberOfFiles"}:          {"nutanix_file_server_files_count", "count", convNone},
	{common.KindFileServer, "numberOfConnections"}:    {"nutanix_file_server_connections", "count", convNone},
}

// normalizer maps adapter-local records into the canonical metric model and
// arbitrates conflicting series through its precedence table. It is a pure
// component: no network access, deterministic output.
type normalizer struct {
	authority map[string]adapters.Generation
	now       func() time.Time
}

// NewNormalizer creates a new normalizer. nodeCountAuthority selects which
// generation wins when two adapters report a node count for the same cluster.
func NewNormalizer(nodeCountAuthority string) *normalizer {
	authority := map[string]adapters.Generation{
		"nutanix_cluster_node_count": adapters.Generation(nodeCountAuthority),
	}

	return &normalizer{
		authority: authority,
		now:       time.Now,
	}
}

// Normalize maps one adapter record to zero or one canonical metric record.
// Malformed records (missing identity or unparsable value) are dropped
// individually; the caller counts them.
func (n *normalizer) Normalize(rec adapters.Record) (common.MetricRecord, bool) {
	if len(rec.UUID) == 0 {
		log.Debug("dropping record without identity", "kind", rec.Kind, "metric", rec.Metric)
		return common.MetricRecord{}, false
	}

	r, ok := rules[fieldKey{rec.Kind, rec.Metric}]
	if !ok {
		log.Debug("dropping record with unknown wire field", "kind", rec.Kind, "field", rec.Metric)
		return common.MetricRecord{}, false
	}

	var value float64
	switch r.conv {
	case convPowerState:
		switch rec.Value {
		case "ON":
			value = 1
		case "OFF":
			value = 0
		default:
			log.Warn("dropping record with unknown power state", "state", rec.Value, "resource", rec.Name)
			return common.MetricRecord{}, false
		}
	default:
		parsed, err := strconv.ParseFloat(rec.Value, 64)
		if err != nil {
			log.Debug("dropping record with unparsable value", "field", rec.Metric, "value", rec.Value)
			return common.MetricRecord{}, false
		}
		value = parsed
	}

	switch r.conv {
	case convPpmToPercent:
		value = value / 10000
	case convMibToBytes:
		value = value * 1024 * 1024
	}

	if r.unit == "percent" {
		value = clampPercent(value)
	}

	identity := common.Identity{Kind: rec.Kind, UUID: rec.UUID, Name: rec.Name}

	return common.MetricRecord{
		Identity:   identity,
		Metric:     r.metric,
		Value:      value,
		Unit:       r.unit,
		Labels:     buildLabels(identity, rec.Labels),
		ObservedAt: n.now(),
	}, true
}

// Authority returns the generation whose value wins for the given canonical
// metric when two adapters disagree; empty when no precedence is declared.
func (n *normalizer) Authority(metric string) adapters.Generation {
	return n.authority[metric]
}

// IsInterfaceNil returns true if the value under the interface is nil
func (n *normalizer) IsInterfaceNil() bool {
	return n == nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

var identityLabelKeys = map[common.ResourceKind][2]string{
	common.KindCluster:          {"cluster_name", "cluster_uuid"},
	common.KindHost:             {"host_name", "host_uuid"},
	common.KindVM:               {"vm_name", "vm_uuid"},
	common.KindStorageContainer: {"container_name", "container_uuid"},
	common.KindFileServer:       {"file_server_name", "file_server_uuid"},
}

func buildLabels(identity common.Identity, extra []common.Label) []common.Label {
	keys := identityLabelKeys[identity.Kind]

	labels := []common.Label{
		{Key: keys[0], Value: identity.Name},
		{Key: keys[1], Value: identity.UUID},
	}

	for _, l := range extra {
		if l.Key == keys[0] || l.Key == keys[1] {
			continue
		}
		labels = append(labels, l)
	}

	return labels
}
