package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"

	"github.com/patrick-commits/dark-site-metering/pricing"
)

var log = logger.GetOrCreate("api")

const defaultExportListLimit = 30

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ListenAddress  string
	Metrics        MetricsProvider
	Pricing        PricingStore
	Journal        ExportJournal
	Trigger        ExportTrigger
	GeneralHandler func(http.Handler) http.Handler
}

// server exposes the current snapshot as pull-based text exposition plus a
// small JSON surface for the export journal and pricing catalog. It is a thin
// transport wrapper: all state lives behind the injected components.
type server struct {
	router         *gin.Engine
	httpServer     *http.Server
	metrics        MetricsProvider
	pricing        PricingStore
	journal        ExportJournal
	trigger        ExportTrigger
	listenAddr     string
	generalHandler func(http.Handler) http.Handler
	wg             sync.WaitGroup
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Metrics) {
		return nil, errors.New("nil metrics provider")
	}
	if check.IfNil(args.Pricing) {
		return nil, errors.New("nil pricing store")
	}
	if check.IfNil(args.Journal) {
		return nil, errors.New("nil export journal")
	}
	if check.IfNil(args.Trigger) {
		return nil, errors.New("nil export trigger")
	}
	if args.GeneralHandler == nil {
		return nil, errors.New("nil http handler")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &server{
		router:         router,
		metrics:        args.Metrics,
		pricing:        args.Pricing,
		journal:        args.Journal,
		trigger:        args.Trigger,
		listenAddr:     args.ListenAddress,
		generalHandler: args.GeneralHandler,
	}

	s.setupRoutes()
	return s, nil
}

func (s *server) setupRoutes() {
	s.router.GET("/metrics", s.handleMetrics)
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/exports", s.handleListExports)
	api.POST("/exports/run", s.handleRunExport)
	api.GET("/pricing", s.handleGetPricing)
	api.POST("/pricing/rates", s.handleAddRate)
	api.POST("/pricing/active", s.handleSetActive)
}

// Start listens and serves connections
func (s *server) Start() {
	handler := s.generalHandler(s.router)

	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: handler,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()
	return nil
}

// --- Handlers ---

func (s *server) handleMetrics(c *gin.Context) {
	snap := s.metrics.Current()
	nci, nciOK, nus, nusOK := s.pricing.ActiveRates()

	body := renderExposition(snap, nci.HourlyRate, nciOK, nus.HourlyRate, nusOK)
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(body))
}

func (s *server) handleHealth(c *gin.Context) {
	snap := s.metrics.Current()
	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"snapshot":       snap.ID,
		"neverCollected": snap.IsEmpty(),
	})
}

func (s *server) handleListExports(c *gin.Context) {
	limit := defaultExportListLimit
	if raw := c.Query("limit"); len(raw) > 0 {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	runs, err := s.journal.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"exports": runs})
}

func (s *server) handleRunExport(c *gin.Context) {
	path, err := s.trigger.TriggerExport(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "path": path})
}

func (s *server) handleGetPricing(c *gin.Context) {
	c.JSON(http.StatusOK, s.pricing.Catalog())
}

func (s *server) handleAddRate(c *gin.Context) {
	var req struct {
		Family string       `json:"family"`
		Code   string       `json:"code"`
		Rate   pricing.Rate `json:"rate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	err := s.pricing.AddRate(req.Family, req.Code, req.Rate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleSetActive(c *gin.Context) {
	var req struct {
		Family string `json:"family"`
		Code   string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	err := s.pricing.SetActive(req.Family, req.Code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CORSMiddleware allows the exposition and the JSON surface to be scraped
// from browser-based tooling inside the dark site
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
