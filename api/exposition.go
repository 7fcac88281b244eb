package api

import (
	"sort"
	"strconv"
	"strings"

	"github.com/patrick-commits/dark-site-metering/common"
)

// renderExposition serializes one snapshot into the text exposition format,
// one `metric_name{label="value",...} value` line per record. The sentinel
// snapshot renders an empty body, not an error.
func renderExposition(snap *common.Snapshot, nciRate float64, nciOK bool, nusRate float64, nusOK bool) string {
	var sb strings.Builder

	if !snap.IsEmpty() {
		for _, record := range snap.Records {
			writeLine(&sb, record.Metric, record.Labels, record.Value)
		}

		for _, kv := range requestCounterLines(snap.Counters.Requests) {
			writeLine(&sb, "nutanix_exporter_api_requests_total", kv.labels, float64(kv.count))
		}
		writeLine(&sb, "nutanix_exporter_dropped_records_total", nil, float64(snap.Counters.DroppedRecords))
		writeLine(&sb, "nutanix_exporter_duplicate_series_total", nil, float64(snap.Counters.DuplicateSeries))

		for _, kind := range common.AllKinds {
			status, ok := snap.Status[kind]
			if !ok {
				continue
			}
			value := 0.0
			if status.Status == common.StatusComplete {
				value = 1.0
			}
			writeLine(&sb, "nutanix_exporter_kind_complete", []common.Label{
				{Key: "kind", Value: string(kind)},
				{Key: "status", Value: string(status.Status)},
			}, value)
		}
	}

	if nciOK {
		writeLine(&sb, "nutanix_pricing_active_nci_rate", nil, nciRate)
	}
	if nusOK {
		writeLine(&sb, "nutanix_pricing_active_nus_rate", nil, nusRate)
	}

	return sb.String()
}

func writeLine(sb *strings.Builder, metric string, labels []common.Label, value float64) {
	sb.WriteString(metric)
	if len(labels) > 0 {
		sb.WriteString("{")
		for i, l := range labels {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(l.Key)
			sb.WriteString(`="`)
			sb.WriteString(escapeLabelValue(l.Value))
			sb.WriteString(`"`)
		}
		sb.WriteString("}")
	}
	sb.WriteString(" ")
	sb.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
	sb.WriteString("\n")
}

func escapeLabelValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	return v
}

type counterLine struct {
	labels []common.Label
	count  int
}

// requestCounterLines expands the "endpoint|status" keyed counters in a stable
// order so scrapes of the same snapshot are byte-identical
func requestCounterLines(requests map[string]int) []counterLine {
	keys := sortedCounterKeys(requests)

	lines := make([]counterLine, 0, len(keys))
	for _, key := range keys {
		endpoint, status, found := strings.Cut(key, "|")
		if !found {
			status = "unknown"
		}
		lines = append(lines, counterLine{
			labels: []common.Label{
				{Key: "endpoint", Value: endpoint},
				{Key: "status", Value: status},
			},
			count: requests[key],
		})
	}

	return lines
}

func sortedCounterKeys(requests map[string]int) []string {
	keys := make([]string, 0, len(requests))
	for key := range requests {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
