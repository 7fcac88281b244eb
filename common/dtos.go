package common

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// ResourceKind identifies the class of control-plane object a record belongs to
type ResourceKind string

const (
	KindCluster          ResourceKind = "Cluster"
	KindHost             ResourceKind = "Host"
	KindVM               ResourceKind = "VM"
	KindStorageContainer ResourceKind = "StorageContainer"
	KindFileServer       ResourceKind = "FileServer"
)

// AllKinds lists every resource kind one collection cycle accounts for
var AllKinds = []ResourceKind{KindCluster, KindHost, KindVM, KindStorageContainer, KindFileServer}

// Identity uniquely identifies a metered resource. The UUID is the stable join
// key across API generations; display names are not assumed unique.
type Identity struct {
	Kind ResourceKind
	UUID string
	Name string
}

// Credential holds the authenticated access state for the remote control plane.
// Owned by the session manager; the cookie is only set for the legacy generation.
type Credential struct {
	Username  string
	Password  string
	Cookie    string
	ExpiresAt time.Time
}

// Label is one key-value pair attached to a metric record
type Label struct {
	Key   string
	Value string
}

// MetricRecord is the canonical normalized form of one observed value.
// Units are already SI-consistent: bytes, percent in [0,100], or plain counts.
type MetricRecord struct {
	Identity   Identity
	Metric     string
	Value      float64
	Unit       string
	Labels     []Label
	ObservedAt time.Time
}

// SeriesKey renders the metric name plus the full label set. The key must be
// unique within one snapshot: a collision means two adapters emitted the same
// series and one of them has to win through the precedence table.
func (r MetricRecord) SeriesKey() string {
	labels := make([]string, 0, len(r.Labels))
	for _, l := range r.Labels {
		labels = append(labels, l.Key+"="+l.Value)
	}
	sort.Strings(labels)

	return r.Metric + "{" + strings.Join(labels, ",") + "}"
}

// Status describes how much of a kind's collection succeeded in one cycle
type Status string

const (
	StatusComplete Status = "Complete"
	StatusPartial  Status = "Partial"
	StatusFailed   Status = "Failed"
)

// KindStatus is the per-resource-kind completeness flag recorded in a snapshot
type KindStatus struct {
	Status Status
	Err    string
}

// CycleCounters holds the operational self-metrics accumulated during one cycle
type CycleCounters struct {
	Requests        map[string]int // keyed "endpoint|status"
	DroppedRecords  int
	DuplicateSeries int
}

// Snapshot is one immutable, versioned collection of metric records produced by
// a single collection cycle. It is the unit of consistency: metric serving and
// billing projection both operate against exactly one snapshot.
type Snapshot struct {
	ID          string
	CollectedAt time.Time
	Records     []MetricRecord
	Status      map[ResourceKind]KindStatus
	Counters    CycleCounters
}

// NewEmptySnapshot returns the "never collected" sentinel served before the
// first successful cycle completes
func NewEmptySnapshot() *Snapshot {
	return &Snapshot{
		Status: map[ResourceKind]KindStatus{},
	}
}

// IsEmpty returns true for the sentinel snapshot
func (s *Snapshot) IsEmpty() bool {
	return s.ID == ""
}

// BillingRow is one line of the daily metering export, derived from a snapshot
type BillingRow struct {
	AccountID   string
	Qty         float64
	StartDate   string
	EndDate     string
	MeteredItem string
	AppID       string
	SNo         int
	FQDN        string
	Type        string
	Description string
	GUID        string
}

// BillingColumns is the exact export header, in column order
var BillingColumns = []string{
	"accountId", "qty", "startDate", "endDate", "meteredItem",
	"appid", "sno", "fqdn", "type", "description", "guid",
}

// Fields renders the row in BillingColumns order
func (r BillingRow) Fields() []string {
	return []string{
		r.AccountID,
		strconv.FormatFloat(r.Qty, 'f', -1, 64),
		r.StartDate,
		r.EndDate,
		r.MeteredItem,
		r.AppID,
		strconv.Itoa(r.SNo),
		r.FQDN,
		r.Type,
		r.Description,
		r.GUID,
	}
}
