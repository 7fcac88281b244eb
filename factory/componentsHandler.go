package factory

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/patrick-commits/dark-site-metering/adapters"
	"github.com/patrick-commits/dark-site-metering/aggregator"
	"github.com/patrick-commits/dark-site-metering/api"
	"github.com/patrick-commits/dark-site-metering/billing"
	"github.com/patrick-commits/dark-site-metering/config"
	"github.com/patrick-commits/dark-site-metering/normalize"
	"github.com/patrick-commits/dark-site-metering/pricing"
	"github.com/patrick-commits/dark-site-metering/registry"
	"github.com/patrick-commits/dark-site-metering/scheduler"
	"github.com/patrick-commits/dark-site-metering/session"
	"github.com/patrick-commits/dark-site-metering/storage"
)

type componentsHandler struct {
	registry  api.MetricsProvider
	journal   io.Closer
	scheduler Scheduler
	server    Server
}

// NewComponentsHandler creates and wires all the service components
func NewComponentsHandler(
	username string,
	password string,
	cfg config.Config,
) (*componentsHandler, error) {
	baseURL := fmt.Sprintf("https://%s:%d", cfg.Host, cfg.Port)
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateBurst)

	client := adapters.NewClient(baseURL, time.Duration(cfg.RequestTimeoutInSeconds)*time.Second, limiter)

	sess, err := session.NewManager(session.Args{
		BaseURL:     baseURL,
		Username:    username,
		Password:    password,
		Client:      client.HTTPClient(),
		Limiter:     limiter,
		MaxFailures: cfg.MaxAuthFailures,
	})
	if err != nil {
		return nil, err
	}

	legacyStats, err := adapters.NewLegacyStatsAdapter(client)
	if err != nil {
		return nil, err
	}
	resourceList, err := adapters.NewResourceListAdapter(client)
	if err != nil {
		return nil, err
	}
	fileService, err := adapters.NewFileServiceAdapter(client)
	if err != nil {
		return nil, err
	}

	agg, err := aggregator.NewAggregator(aggregator.Args{
		Session:     sess,
		Adapters:    []aggregator.Adapter{legacyStats, resourceList, fileService},
		Normalizer:  normalize.NewNormalizer(cfg.NodeCountAuthority),
		Requests:    client,
		CycleBudget: time.Duration(cfg.CycleBudgetInSeconds) * time.Second,
		MaxRetries:  cfg.MaxTransientRetries,
	})
	if err != nil {
		return nil, err
	}

	reg := registry.NewRegistry()

	journal, err := storage.NewJournal(cfg.JournalPath, cfg.JournalRetentionDays)
	if err != nil {
		return nil, err
	}

	exportRunner, err := billing.NewRunner(billing.ArgsRunner{
		ExportDir: cfg.ExportDir,
		AccountID: cfg.AccountID,
		AppID:     cfg.AppID,
		Journal:   journal,
	})
	if err != nil {
		_ = journal.Close()
		return nil, err
	}

	sched, err := scheduler.NewScheduler(scheduler.Args{
		Collector:  agg,
		Publisher:  reg,
		Exporter:   exportRunner,
		Interval:   time.Duration(cfg.CollectionIntervalInSeconds) * time.Second,
		ExportTime: cfg.DailyExportTime,
	})
	if err != nil {
		_ = journal.Close()
		return nil, err
	}

	pricingStore, err := pricing.NewStore(cfg.PricingFile)
	if err != nil {
		_ = journal.Close()
		return nil, err
	}

	webServer, err := api.NewServer(api.ArgsWebServer{
		ListenAddress:  cfg.ListenAddress,
		Metrics:        reg,
		Pricing:        pricingStore,
		Journal:        journal,
		Trigger:        sched,
		GeneralHandler: api.CORSMiddleware,
	})
	if err != nil {
		_ = journal.Close()
		return nil, err
	}

	return &componentsHandler{
		registry:  reg,
		journal:   journal,
		scheduler: sched,
		server:    webServer,
	}, nil
}

// GetRegistry returns the metric registry component
func (ch *componentsHandler) GetRegistry() api.MetricsProvider {
	return ch.registry
}

// GetScheduler returns the scheduler component
func (ch *componentsHandler) GetScheduler() Scheduler {
	return ch.scheduler
}

// GetServer returns the web server component
func (ch *componentsHandler) GetServer() Server {
	return ch.server
}

// Start starts the inner components
func (ch *componentsHandler) Start() {
	ch.scheduler.Start()
	ch.server.Start()
}

// Close closes the inner components
func (ch *componentsHandler) Close() {
	_ = ch.server.Close()
	ch.scheduler.Close()
	_ = ch.journal.Close()
}
