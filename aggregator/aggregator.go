package aggregator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"golang.org/x/sync/errgroup"

	"github.com/patrick-commits/dark-site-metering/adapters"
	"github.com/patrick-commits/dark-site-metering/common"
)

var log = logger.GetOrCreate("aggregator")

const maxConcurrentFetches = 4
const baseBackoff = 500 * time.Millisecond

// Args defines the aggregator arguments
type Args struct {
	Session     Session
	Adapters    []Adapter
	Normalizer  Normalizer
	Requests    RequestCounter
	CycleBudget time.Duration
	MaxRetries  int
}

// aggregator runs one full collection cycle across all adapters and assembles
// a single immutable snapshot with per-resource-kind completeness state. No
// error from an adapter or the session manager escapes a cycle.
type aggregator struct {
	session     Session
	adapters    []Adapter
	normalizer  Normalizer
	requests    RequestCounter
	cycleBudget time.Duration
	maxRetries  int
}

// NewAggregator creates a new aggregator instance
func NewAggregator(args Args) (*aggregator, error) {
	if check.IfNil(args.Session) {
		return nil, errors.New("nil session manager")
	}
	if len(args.Adapters) == 0 {
		return nil, errors.New("no adapters provided")
	}
	for _, ad := range args.Adapters {
		if check.IfNil(ad) {
			return nil, errors.New("nil adapter")
		}
	}
	if check.IfNil(args.Normalizer) {
		return nil, errors.New("nil normalizer")
	}
	if args.CycleBudget <= 0 {
		return nil, errors.New("invalid cycle budget")
	}
	if args.MaxRetries < 0 {
		return nil, errors.New("invalid max retries value")
	}

	return &aggregator{
		session:     args.Session,
		adapters:    args.Adapters,
		normalizer:  args.Normalizer,
		requests:    args.Requests,
		cycleBudget: args.CycleBudget,
		maxRetries:  args.MaxRetries,
	}, nil
}

type fetchOutcome struct {
	kind    common.ResourceKind
	adapter string
	source  adapters.Generation
	records []adapters.Record
	status  common.Status
	errMsg  string
}

// Collect runs one full collection cycle and returns the resulting snapshot.
// The cycle is bounded by the configured wall-clock budget; whatever completed
// before the budget expired is still published with an honest status map.
func (a *aggregator) Collect(ctx context.Context) *common.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, a.cycleBudget)
	defer cancel()

	started := time.Now()
	snap := &common.Snapshot{
		ID:          uuid.NewString(),
		CollectedAt: started,
		Status:      make(map[common.ResourceKind]common.KindStatus),
	}

	cred, err := a.session.Acquire(ctx)
	if err != nil {
		log.Warn("session acquisition failed, marking all kinds failed", "error", err)
		for _, kind := range common.AllKinds {
			snap.Status[kind] = common.KindStatus{Status: common.StatusFailed, Err: err.Error()}
		}
		a.attachCounters(snap)
		return snap
	}

	outcomes := a.fetchAll(ctx, cred)
	a.assemble(snap, outcomes)
	a.attachCounters(snap)

	log.Debug("collection cycle finished",
		"snapshot", snap.ID,
		"records", len(snap.Records),
		"dropped", snap.Counters.DroppedRecords,
		"duration", time.Since(started))

	return snap
}

// fetchAll fans the per-kind adapter calls out concurrently. Failure in one
// call never prevents the others from completing; pagination inside a single
// adapter call stays sequential.
func (a *aggregator) fetchAll(ctx context.Context, cred *common.Credential) []fetchOutcome {
	var mut sync.Mutex
	var outcomes []fetchOutcome

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, ad := range a.adapters {
		for _, kind := range ad.Kinds() {
			g.Go(func() error {
				outcome := a.fetchWithRetry(gctx, cred, ad, kind)

				mut.Lock()
				outcomes = append(outcomes, outcome)
				mut.Unlock()

				return nil
			})
		}
	}

	_ = g.Wait()

	return outcomes
}

func (a *aggregator) fetchWithRetry(ctx context.Context, cred *common.Credential, ad Adapter, kind common.ResourceKind) fetchOutcome {
	outcome := fetchOutcome{
		kind:    kind,
		adapter: ad.Name(),
		source:  adapters.Generation(ad.Name()),
	}

	var partial []adapters.Record
	var lastErr error
	reauthed := false

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		records, err := ad.Fetch(ctx, cred, kind)
		if err == nil {
			outcome.records = records
			outcome.status = common.StatusComplete
			return outcome
		}

		lastErr = err
		if errors.Is(err, common.ErrPartialDrain) && len(records) > 0 {
			partial = records
		}

		switch common.Classify(err) {
		case common.ClassAuth:
			if reauthed {
				return finishOutcome(outcome, partial, lastErr)
			}
			reauthed = true
			a.session.Invalidate("credential rejected by " + ad.Name())
			fresh, acquireErr := a.session.Acquire(ctx)
			if acquireErr != nil {
				return finishOutcome(outcome, partial, acquireErr)
			}
			cred = fresh
		case common.ClassPermanent:
			log.Warn("permanent error fetching kind", "adapter", ad.Name(), "kind", kind, "error", err)
			return finishOutcome(outcome, partial, lastErr)
		case common.ClassTransient:
			if attempt == a.maxRetries {
				return finishOutcome(outcome, partial, lastErr)
			}
			if !sleepBackoff(ctx, baseBackoff<<attempt) {
				return finishOutcome(outcome, partial, lastErr)
			}
			log.Debug("retrying after transient error", "adapter", ad.Name(), "kind", kind, "attempt", attempt+1)
		}
	}

	return finishOutcome(outcome, partial, lastErr)
}

func finishOutcome(outcome fetchOutcome, partial []adapters.Record, err error) fetchOutcome {
	outcome.errMsg = err.Error()
	if len(partial) > 0 {
		outcome.records = partial
		outcome.status = common.StatusPartial
	} else {
		outcome.status = common.StatusFailed
	}

	return outcome
}

func sleepBackoff(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// assemble normalizes, deduplicates and cross-references the fetched records
// and freezes them into the snapshot together with the per-kind status map
func (a *aggregator) assemble(snap *common.Snapshot, outcomes []fetchOutcome) {
	type chosen struct {
		record common.MetricRecord
		source adapters.Generation
	}

	series := make(map[string]chosen)
	kindStatuses := make(map[common.ResourceKind][]fetchOutcome)

	order := make([]string, 0)
	for _, outcome := range outcomes {
		kindStatuses[outcome.kind] = append(kindStatuses[outcome.kind], outcome)

		for _, raw := range outcome.records {
			record, ok := a.normalizer.Normalize(raw)
			if !ok {
				snap.Counters.DroppedRecords++
				continue
			}

			key := record.SeriesKey()
			existing, found := series[key]
			if !found {
				series[key] = chosen{record: record, source: outcome.source}
				order = append(order, key)
				continue
			}

			if existing.source == outcome.source {
				// the same generation emitted the same series twice: a defect,
				// first record wins
				snap.Counters.DuplicateSeries++
				log.Warn("duplicate series within one cycle", "series", key, "adapter", outcome.adapter)
				continue
			}

			if a.normalizer.Authority(record.Metric) == outcome.source {
				series[key] = chosen{record: record, source: outcome.source}
			}
		}
	}

	for _, kind := range common.AllKinds {
		snap.Status[kind] = combineStatuses(kindStatuses[kind])
	}

	records := make([]common.MetricRecord, 0, len(series))
	for _, key := range order {
		records = append(records, series[key].record)
	}
	resolveClusterLabels(records)
	sortRecords(records)

	snap.Records = records
}

// combineStatuses folds the per-adapter outcomes of one kind: Complete only
// when every adapter call for the kind succeeded, Partial when some records
// were obtained, Failed when none were.
func combineStatuses(outcomes []fetchOutcome) common.KindStatus {
	if len(outcomes) == 0 {
		return common.KindStatus{Status: common.StatusFailed, Err: "no adapter declared for kind"}
	}

	allComplete := true
	anyRecords := false
	errMsg := ""
	for _, o := range outcomes {
		if o.status != common.StatusComplete {
			allComplete = false
		}
		if len(o.records) > 0 {
			anyRecords = true
		}
		if len(o.errMsg) > 0 && len(errMsg) == 0 {
			errMsg = o.adapter + ": " + o.errMsg
		}
	}

	switch {
	case allComplete:
		return common.KindStatus{Status: common.StatusComplete}
	case anyRecords:
		return common.KindStatus{Status: common.StatusPartial, Err: errMsg}
	default:
		return common.KindStatus{Status: common.StatusFailed, Err: errMsg}
	}
}

// resolveClusterLabels fills empty cluster_name labels from the cluster
// identities observed in the same cycle, falling back to the uuid so a record
// is never dropped because of an unrelated kind's failure
func resolveClusterLabels(records []common.MetricRecord) {
	clusterNames := make(map[string]string)
	for _, r := range records {
		if r.Identity.Kind == common.KindCluster && len(r.Identity.Name) > 0 {
			clusterNames[r.Identity.UUID] = r.Identity.Name
		}
	}

	for i := range records {
		labels := records[i].Labels
		clusterUUID := ""
		nameIdx := -1
		for j, l := range labels {
			if l.Key == "cluster_uuid" && records[i].Identity.Kind != common.KindCluster {
				clusterUUID = l.Value
			}
			if l.Key == "cluster_name" && records[i].Identity.Kind != common.KindCluster {
				nameIdx = j
			}
		}
		if nameIdx < 0 || len(labels[nameIdx].Value) > 0 || len(clusterUUID) == 0 {
			continue
		}

		name, ok := clusterNames[clusterUUID]
		if !ok {
			name = clusterUUID
		}
		labels[nameIdx].Value = name
	}
}

func sortRecords(records []common.MetricRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Identity.Kind != records[j].Identity.Kind {
			return records[i].Identity.Kind < records[j].Identity.Kind
		}
		if records[i].Metric != records[j].Metric {
			return records[i].Metric < records[j].Metric
		}
		return records[i].SeriesKey() < records[j].SeriesKey()
	})
}

func (a *aggregator) attachCounters(snap *common.Snapshot) {
	if a.requests == nil {
		return
	}
	snap.Counters.Requests = a.requests.TakeCounters()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (a *aggregator) IsInterfaceNil() bool {
	return a == nil
}
