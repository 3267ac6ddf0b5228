// internal/web/server.go
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"wakeward/internal/config"
	"wakeward/internal/database"
	"wakeward/internal/metrics"
	"wakeward/internal/netcheck"
	"wakeward/internal/power"
	"wakeward/internal/wake"
	"wakeward/internal/wakelog"
)

type Server struct {
	config     *config.Config
	store      database.Store
	classifier *power.Classifier
	watcher    *wake.Watcher
	wakeLog    *wakelog.Collector
	prober     netcheck.Prober
	metrics    *metrics.Collector
	router     *gin.Engine
	server     *http.Server

	wsMu      sync.Mutex
	wsClients map[*WSClient]bool
}

func NewServer(cfg *config.Config, store database.Store, classifier *power.Classifier, watcher *wake.Watcher, wakeLog *wakelog.Collector, prober netcheck.Prober, metricsCollector *metrics.Collector) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	server := &Server{
		config:     cfg,
		store:      store,
		classifier: classifier,
		watcher:    watcher,
		wakeLog:    wakeLog,
		prober:     prober,
		metrics:    metricsCollector,
		router:     router,
		wsClients:  make(map[*WSClient]bool),
	}

	server.setupRoutes()
	return server
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	logrus.WithField("port", s.config.Server.Port).Info("Starting web server")

	// Periodic system metrics and websocket state pushes
	go s.updateMetricsRoutine(ctx)
	go s.broadcastRoutine(ctx)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/hosts", s.getHosts)
		api.GET("/hosts/:id", s.getHost)

		api.GET("/power", s.getPowerStates)
		api.GET("/power/:id", s.getPowerState)

		api.POST("/hosts/:id/wake", s.triggerWake)

		api.GET("/wakelog", s.getWakeLog)

		api.GET("/gateway", s.getGateway)
		api.GET("/stats", s.getStats)
		api.GET("/health", s.healthCheck)
		api.GET("/buildinfo", s.getBuildInfo)
	}

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)

	// Prometheus metrics
	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) updateMetricsRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.metrics.UpdateSystemMetrics(ctx); err != nil {
				logrus.WithError(err).Error("Failed to update system metrics")
			}
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
