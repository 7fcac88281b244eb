package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("scheduler")

const exportTimeLayout = "15:04"

// Args defines the scheduler arguments
type Args struct {
	Collector  Collector
	Publisher  Publisher
	Exporter   Exporter
	Interval   time.Duration
	ExportTime string
}

// scheduler drives the two independent periodic activities: the short-interval
// collection task feeding the registry and the once-daily export task. They
// run as separate goroutines; a slow export never delays a collection tick.
type scheduler struct {
	collector  Collector
	publisher  Publisher
	exporter   Exporter
	interval   time.Duration
	exportTime string
	now        func() time.Time

	mutCancel sync.Mutex
	cancel    func()
	wg        sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(args Args) (*scheduler, error) {
	if check.IfNil(args.Collector) {
		return nil, errors.New("nil collector")
	}
	if check.IfNil(args.Publisher) {
		return nil, errors.New("nil publisher")
	}
	if check.IfNil(args.Exporter) {
		return nil, errors.New("nil exporter")
	}
	if args.Interval <= 0 {
		return nil, errors.New("invalid collection interval")
	}
	_, err := time.Parse(exportTimeLayout, args.ExportTime)
	if err != nil {
		return nil, fmt.Errorf("invalid daily export time '%s': %w", args.ExportTime, err)
	}

	return &scheduler{
		collector:  args.Collector,
		publisher:  args.Publisher,
		exporter:   args.Exporter,
		interval:   args.Interval,
		exportTime: args.ExportTime,
		now:        time.Now,
	}, nil
}

// Start launches the collection and daily export loops
func (s *scheduler) Start() {
	s.mutCancel.Lock()
	defer s.mutCancel.Unlock()

	if s.cancel != nil {
		return
	}

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(2)
	go s.collectLoop(ctx)
	go s.dailyLoop(ctx)
}

// Close stops the loops and waits for in-flight work to finish or abort
// cleanly
func (s *scheduler) Close() {
	s.mutCancel.Lock()
	defer s.mutCancel.Unlock()

	if s.cancel == nil {
		return
	}

	s.cancel()
	s.cancel = nil
	s.wg.Wait()
}

// TriggerExport runs the daily export now: it drives a fresh collection cycle
// first, so the export never reuses data collected hours earlier
func (s *scheduler) TriggerExport(ctx context.Context) (string, error) {
	return s.runExport(ctx)
}

func (s *scheduler) collectLoop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	s.runCollection(ctx)

	for {
		select {
		case <-timer.C:
			s.runCollection(ctx)
			timer.Reset(s.interval)
		case <-ctx.Done():
			return
		}
	}
}

func (s *scheduler) dailyLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		wait := time.Until(nextRun(s.now(), s.exportTime))
		log.Debug("daily export scheduled", "in", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			_, err := s.runExport(ctx)
			if err != nil {
				log.Error("daily export failed", "error", err)
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
		timer.Stop()
	}
}

func (s *scheduler) runCollection(ctx context.Context) {
	snap := s.collector.Collect(ctx)
	s.publisher.Publish(snap)
}

func (s *scheduler) runExport(ctx context.Context) (string, error) {
	log.Info("starting daily export run")

	snap := s.collector.Collect(ctx)
	s.publisher.Publish(snap)

	path, err := s.exporter.Export(ctx, snap)
	if err != nil {
		return "", err
	}

	log.Info("daily export completed", "path", path)

	return path, nil
}

// nextRun returns the next wall-clock occurrence of the configured export
// time, strictly after now
func nextRun(now time.Time, exportTime string) time.Time {
	parsed, err := time.Parse(exportTimeLayout, exportTime)
	if err != nil {
		// validated at construction; fall back to one day ahead
		return now.AddDate(0, 0, 1)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *scheduler) IsInterfaceNil() bool {
	return s == nil
}
