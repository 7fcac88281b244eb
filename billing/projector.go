package billing

import (
	"fmt"
	"math"
	"sort"
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"

	"github.com/patrick-commits/dark-site-metering/common"
	"github.com/patrick-commits/dark-site-metering/config"
)

var log = logger.GetOrCreate("billing")

// Conversion constants live here and nowhere else, so rounding is applied
// exactly once per exported quantity.
const (
	bytesPerGB  = 1073741824
	bytesPerTiB = 1099511627776
)

const dateLayout = "2006-01-02"

// Period bounds one reporting interval, dates only
type Period struct {
	Start string
	End   string
}

// PeriodForDay returns the daily reporting period ending at the given day's
// midnight: yesterday to today
func PeriodForDay(now time.Time) Period {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := end.AddDate(0, 0, -1)

	return Period{
		Start: start.Format(dateLayout),
		End:   end.Format(dateLayout),
	}
}

type vmUsage struct {
	uuid      string
	name      string
	cluster   string
	vcpus     *float64
	memBytes  *float64
	diskBytes *float64
}

type hostUsage struct {
	uuid    string
	name    string
	cluster string
	cores   *float64
}

type fsUsage struct {
	uuid      string
	name      string
	usedBytes *float64
}

// Project derives the ordered billing rows for one snapshot and reporting
// period. Deterministic: identical inputs produce byte-identical rows.
// Resources whose kind failed in the cycle are excluded entirely; partial
// resources keep whatever metered items were obtained, missing numeric fields
// skip that item's row only.
func Project(snap *common.Snapshot, period Period, accountID string, appID string) []common.BillingRow {
	vms := make(map[string]*vmUsage)
	hosts := make(map[string]*hostUsage)
	fileServers := make(map[string]*fsUsage)

	vmFailed := snap.Status[common.KindVM].Status == common.StatusFailed
	hostFailed := snap.Status[common.KindHost].Status == common.StatusFailed
	fsFailed := snap.Status[common.KindFileServer].Status == common.StatusFailed

	for _, r := range snap.Records {
		switch {
		case r.Identity.Kind == common.KindVM && !vmFailed:
			vm := vms[r.Identity.UUID]
			if vm == nil {
				vm = &vmUsage{uuid: r.Identity.UUID, name: r.Identity.Name, cluster: labelValue(r.Labels, "cluster_name")}
				vms[r.Identity.UUID] = vm
			}
			v := r.Value
			switch r.Metric {
			case "nutanix_vm_cpu_count":
				vm.vcpus = &v
			case "nutanix_vm_memory_bytes":
				vm.memBytes = &v
			case "nutanix_vm_disk_size_bytes":
				vm.diskBytes = &v
			}
		case r.Identity.Kind == common.KindHost && !hostFailed:
			host := hosts[r.Identity.UUID]
			if host == nil {
				host = &hostUsage{uuid: r.Identity.UUID, name: r.Identity.Name, cluster: labelValue(r.Labels, "cluster_name")}
				hosts[r.Identity.UUID] = host
			}
			if r.Metric == "nutanix_host_physical_cpu_cores" {
				v := r.Value
				host.cores = &v
			}
		case r.Identity.Kind == common.KindFileServer && !fsFailed:
			fs := fileServers[r.Identity.UUID]
			if fs == nil {
				fs = &fsUsage{uuid: r.Identity.UUID, name: r.Identity.Name}
				fileServers[r.Identity.UUID] = fs
			}
			if r.Metric == "nutanix_file_server_used_bytes" {
				v := r.Value
				fs.usedBytes = &v
			}
		}
	}

	explicitAccount := len(accountID) > 0 && accountID != config.DefaultAccountID

	accountForCluster := func(cluster string) string {
		if explicitAccount {
			return accountID
		}
		if len(cluster) > 0 {
			return cluster
		}
		return config.DefaultAccountID
	}
	defaultAccount := accountID
	if !explicitAccount {
		defaultAccount = config.DefaultAccountID
	}

	var rows []common.BillingRow
	sno := 0
	emit := func(account string, qty float64, item string, fqdn string, resType string, desc string, guid string) {
		sno++
		rows = append(rows, common.BillingRow{
			AccountID:   account,
			Qty:         qty,
			StartDate:   period.Start,
			EndDate:     period.End,
			MeteredItem: item,
			AppID:       appID,
			SNo:         sno,
			FQDN:        fqdn,
			Type:        resType,
			Description: desc,
			GUID:        guid,
		})
	}

	for _, vm := range sortedVMs(vms) {
		account := accountForCluster(vm.cluster)
		if vm.vcpus != nil {
			emit(account, *vm.vcpus, "vCPU", vm.name, "VM",
				fmt.Sprintf("Virtual CPUs for VM %s", vm.name), vm.uuid)
		}
		if vm.memBytes != nil {
			emit(account, roundOne(*vm.memBytes/bytesPerGB), "Memory_GB", vm.name, "VM",
				fmt.Sprintf("Memory for VM %s", vm.name), vm.uuid)
		}
		if vm.diskBytes != nil {
			emit(account, roundOne(*vm.diskBytes/bytesPerGB), "Storage_GB", vm.name, "VM",
				fmt.Sprintf("Attached storage for VM %s", vm.name), vm.uuid)
		}
	}

	for _, host := range sortedHosts(hosts) {
		if host.cores == nil || *host.cores <= 0 {
			continue
		}
		emit(accountForCluster(host.cluster), *host.cores, "Cores", host.name, "Host",
			fmt.Sprintf("Physical CPU cores for host %s", host.name), host.uuid)
	}

	for _, fs := range sortedFileServers(fileServers) {
		if fs.usedBytes == nil {
			continue
		}
		emit(defaultAccount, roundOne(*fs.usedBytes/bytesPerTiB), "Files_TiB", fs.name, "FileServer",
			fmt.Sprintf("Files consumed storage for %s", fs.name), fs.uuid)
	}

	log.Debug("projected billing rows", "snapshot", snap.ID, "rows", len(rows))

	return rows
}

// roundOne rounds to one decimal place, half up
func roundOne(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

func labelValue(labels []common.Label, key string) string {
	for _, l := range labels {
		if l.Key == key {
			return l.Value
		}
	}
	return ""
}

func sortedVMs(vms map[string]*vmUsage) []*vmUsage {
	out := make([]*vmUsage, 0, len(vms))
	for _, vm := range vms {
		out = append(out, vm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].cluster != out[j].cluster {
			return out[i].cluster < out[j].cluster
		}
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].uuid < out[j].uuid
	})
	return out
}

func sortedHosts(hosts map[string]*hostUsage) []*hostUsage {
	out := make([]*hostUsage, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].cluster != out[j].cluster {
			return out[i].cluster < out[j].cluster
		}
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].uuid < out[j].uuid
	})
	return out
}

func sortedFileServers(fileServers map[string]*fsUsage) []*fsUsage {
	out := make([]*fsUsage, 0, len(fileServers))
	for _, fs := range fileServers {
		out = append(out, fs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].uuid < out[j].uuid
	})
	return out
}
