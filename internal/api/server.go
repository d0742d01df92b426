// Package api - отладочный HTTP API клиента: состояние индекса мира, блоки, сущности и метрики.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/tileworld/internal/loader"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/middleware"
	"github.com/annel0/tileworld/internal/network"
	"github.com/annel0/tileworld/internal/world"
)

// Registry - реестр Prometheus, в который пишут и из которого читают метрики
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// ConnectionSource отдаёт статистику текущего соединения с сервером
type ConnectionSource interface {
	Stats() network.ConnectionStats
}

// Config содержит зависимости отладочного API
type Config struct {
	Port  int
	Index *world.Index

	// Loader и Source включают POST /api/chunks/:x/:y/restore
	Loader *loader.Loader
	Source loader.PayloadSource

	Connection ConnectionSource

	// Registry - реестр метрик; nil означает глобальный реестр Prometheus
	Registry    Registry
	ServiceName string
}

// GenericResponse - общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Server - отладочный HTTP сервер
type Server struct {
	router *gin.Engine
	http   *http.Server
	config Config
	stats  *ProcessStats
	logger *logging.Logger
}

// NewServer создаёт сервер и настраивает маршруты
func NewServer(config Config) *Server {
	if config.ServiceName == "" {
		config.ServiceName = "tileworld_api"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(config.ServiceName))
	router.Use(middleware.NewRequestLogger().Handler())

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	promMw := middleware.NewPrometheusMiddleware(config.ServiceName, reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	s := &Server{
		router: router,
		config: config,
		stats:  NewProcessStats(),
		logger: logging.GetComponentLogger("api"),
	}
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/stats", s.handleStats)
		api.GET("/chunks", s.handleChunks)
		api.GET("/chunks/:x/:y", s.handleChunk)
		api.POST("/chunks/:x/:y/restore", s.handleRestore)
		api.GET("/blocks", s.handleBlock)
		api.GET("/entities", s.handleEntities)
		api.GET("/entities/:id", s.handleEntity)
	}
}

// Handler возвращает http.Handler сервера
func (s *Server) Handler() http.Handler { return s.router }

// Start слушает порт до Shutdown
func (s *Server) Start() error {
	s.logger.Info("🌐 Отладочный API запущен на %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown дожидается завершения активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("⏹️ Остановка отладочного API")
	return s.http.Shutdown(ctx)
}
