package adapters

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/patrick-commits/dark-site-metering/common"
)

const resourceListPageLength = 500

// resourceListAdapter reads the intent-style generation: POSTed list queries
// with metadata/spec/status envelopes and offset pagination. Pagination within
// one fetch is strictly sequential; each page request depends on the previous
// offset.
type resourceListAdapter struct {
	client     *Client
	pageLength int
}

// NewResourceListAdapter creates a new resource-list adapter instance
func NewResourceListAdapter(client *Client) (*resourceListAdapter, error) {
	if client.IsInterfaceNil() {
		return nil, errNilClient
	}

	return &resourceListAdapter{
		client:     client,
		pageLength: resourceListPageLength,
	}, nil
}

// Name returns the adapter's generation name
func (a *resourceListAdapter) Name() string {
	return string(GenResourceList)
}

// Kinds returns the resource kinds this adapter can populate
func (a *resourceListAdapter) Kinds() []common.ResourceKind {
	return []common.ResourceKind{common.KindCluster, common.KindVM, common.KindHost}
}

// Fetch retrieves the adapter-local records for one resource kind, draining
// pagination to exhaustion. A transient failure mid-drain returns the records
// obtained so far wrapped with ErrPartialDrain, never a silent truncation.
func (a *resourceListAdapter) Fetch(ctx context.Context, cred *common.Credential, kind common.ResourceKind) ([]Record, error) {
	switch kind {
	case common.KindCluster:
		return a.drain(ctx, cred, "/api/nutanix/v3/clusters/list", "cluster", a.clusterRecords)
	case common.KindVM:
		return a.drain(ctx, cred, "/api/nutanix/v3/vms/list", "vm", a.vmRecords)
	case common.KindHost:
		return a.drain(ctx, cred, "/api/nutanix/v3/hosts/list", "host", a.hostRecords)
	default:
		return nil, fmt.Errorf("%w: %s does not serve kind %s", errUnsupportedKind, a.Name(), kind)
	}
}

type entityMapper func(entity gjson.Result) []Record

func (a *resourceListAdapter) drain(
	ctx context.Context,
	cred *common.Credential,
	path string,
	wireKind string,
	mapper entityMapper,
) ([]Record, error) {
	var records []Record

	offset := 0
	seen := 0
	for {
		body, err := a.client.PostJSON(ctx, cred, path, map[string]any{
			"kind":   wireKind,
			"length": a.pageLength,
			"offset": offset,
		})
		if err != nil {
			if len(records) == 0 {
				return nil, err
			}
			return records, fmt.Errorf("%w: %s at offset %d: %w", common.ErrPartialDrain, path, offset, err)
		}

		entities := gjson.GetBytes(body, "entities").Array()
		if len(entities) == 0 {
			break
		}

		for _, entity := range entities {
			records = append(records, mapper(entity)...)
		}
		seen += len(entities)

		total := int(gjson.GetBytes(body, "metadata.total_matches").Int())
		if total > 0 && seen >= total {
			break
		}
		if total == 0 && len(entities) < a.pageLength {
			break
		}

		offset += a.pageLength
	}

	log.Debug("drained resource list", "path", path, "entities", seen, "records", len(records))

	return records, nil
}

func (a *resourceListAdapter) clusterRecords(entity gjson.Result) []Record {
	uuid := entity.Get("metadata.uuid").String()
	name := entity.Get("spec.name").String()
	if len(name) == 0 {
		name = entity.Get("status.name").String()
	}

	records := []Record{{
		Kind:   common.KindCluster,
		UUID:   uuid,
		Name:   name,
		Metric: "cluster_info",
		Value:  "1",
		Source: GenResourceList,
	}}

	// the node list length competes with the legacy num_nodes; the precedence
	// table decides which one wins
	nodes := entity.Get("status.resources.nodes.hypervisor_server_list")
	if nodes.Exists() {
		records = append(records, Record{
			Kind:   common.KindCluster,
			UUID:   uuid,
			Name:   name,
			Metric: "num_nodes",
			Value:  strconv.Itoa(len(nodes.Array())),
			Source: GenResourceList,
		})
	}

	return records
}

func (a *resourceListAdapter) vmRecords(entity gjson.Result) []Record {
	uuid := entity.Get("metadata.uuid").String()
	name := entity.Get("spec.name").String()
	if len(name) == 0 {
		name = entity.Get("status.name").String()
	}

	clusterLabels := []common.Label{
		{Key: "cluster_uuid", Value: entity.Get("spec.cluster_reference.uuid").String()},
		{Key: "cluster_name", Value: entity.Get("spec.cluster_reference.name").String()},
	}

	var records []Record
	emit := func(metric string, value string) {
		records = append(records, Record{
			Kind:   common.KindVM,
			UUID:   uuid,
			Name:   name,
			Metric: metric,
			Value:  value,
			Labels: clusterLabels,
			Source: GenResourceList,
		})
	}

	powerState := entity.Get("status.resources.power_state")
	if powerState.Exists() {
		emit("power_state", powerState.String())
	}

	sockets := entity.Get("spec.resources.num_sockets")
	vcpusPerSocket := entity.Get("spec.resources.num_vcpus_per_socket")
	if sockets.Exists() && vcpusPerSocket.Exists() {
		emit("num_vcpus", strconv.FormatInt(sockets.Int()*vcpusPerSocket.Int(), 10))
	}

	memoryMib := entity.Get("spec.resources.memory_size_mib")
	if memoryMib.Exists() {
		emit("memory_size_mib", memoryMib.String())
	}

	// sum of all attached disks; some generations report bytes, some MiB
	diskList := entity.Get("spec.resources.disk_list")
	if diskList.Exists() {
		var totalBytes int64
		for _, disk := range diskList.Array() {
			sizeBytes := disk.Get("disk_size_bytes").Int()
			if sizeBytes == 0 {
				sizeBytes = disk.Get("disk_size_mib").Int() * 1024 * 1024
			}
			totalBytes += sizeBytes
		}
		emit("disk_size_bytes_total", strconv.FormatInt(totalBytes, 10))
	}

	return records
}

func (a *resourceListAdapter) hostRecords(entity gjson.Result) []Record {
	uuid := entity.Get("metadata.uuid").String()
	name := entity.Get("spec.name").String()
	if len(name) == 0 {
		name = entity.Get("status.name").String()
	}

	clusterLabels := []common.Label{
		{Key: "cluster_uuid", Value: entity.Get("status.cluster_reference.uuid").String()},
		{Key: "cluster_name", Value: entity.Get("status.cluster_reference.name").String()},
	}

	var records []Record
	emit := func(metric string, value gjson.Result) {
		if !value.Exists() {
			return
		}
		records = append(records, Record{
			Kind:   common.KindHost,
			UUID:   uuid,
			Name:   name,
			Metric: metric,
			Value:  value.String(),
			Labels: clusterLabels,
			Source: GenResourceList,
		})
	}

	emit("hypervisor_cpu_usage_ppm", entity.Get("status.resources.hypervisor.cpu_usage_ppm"))
	emit("hypervisor_memory_usage_ppm", entity.Get("status.resources.hypervisor.memory_usage_ppm"))
	emit("num_vms", entity.Get("status.resources.hypervisor.num_vms"))
	emit("num_cpu_cores", entity.Get("status.resources.num_cpu_cores"))
	emit("num_cpu_sockets", entity.Get("status.resources.num_cpu_sockets"))

	return records
}

// IsInterfaceNil returns true if the value under the interface is nil
func (a *resourceListAdapter) IsInterfaceNil() bool {
	return a == nil
}
