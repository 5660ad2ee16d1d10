// Package api реализует HTTP поверхность редактора: просмотр чанков, превью альфы
// и композита, мазки кистью, сохранение и /metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/terrain-editor/internal/auth"
	"github.com/annel0/terrain-editor/internal/cache"
	"github.com/annel0/terrain-editor/internal/config"
	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/middleware"
	"github.com/annel0/terrain-editor/internal/storage"
	"github.com/annel0/terrain-editor/internal/terrain"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Config содержит зависимости HTTP сервера
type Config struct {
	Addr       string                // адрес для запуска сервера, например ":8090"
	Map        *terrain.Map          // загруженные чанки
	Store      *storage.TextureStore // может быть nil: сохранение недоступно
	Cache      *texture.Cache        // может быть nil: композит рисуется цветами
	Previews   cache.PreviewCache    // может быть nil: превью кодируются на каждый запрос
	Auth       *auth.Signer          // nil: изменяющие запросы без токена
	Brush      config.BrushConfig    // параметры кисти по умолчанию
	Preview    config.PreviewConfig  // масштаб превью
	Registerer prometheus.Registerer // nil: дефолтный регистр
	Gatherer   prometheus.Gatherer   // отдаётся на /metrics
	Logger     *logging.Logger       // nil: логгер компонента api
}

// Server представляет REST API редактора
type Server struct {
	router *gin.Engine
	http   *http.Server
	cfg    Config
	stats  *ServerStats
	logger *logging.Logger
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewServer создаёт сервер и настраивает маршруты
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}
	if cfg.Preview.Scale < 1 {
		cfg.Preview.Scale = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetAPILogger()
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery
	router.Use(otelgin.Middleware("terrain-editor"))
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("terrain_api", cfg.Registerer, cfg.Gatherer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	s := &Server{
		router: router,
		cfg:    cfg,
		stats:  NewServerStats(),
		logger: cfg.Logger,
	}
	s.setupRoutes()
	return s
}

// setupRoutes настраивает маршруты REST API
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/chunks", s.handleListChunks)
		api.GET("/chunks/:x/:y", s.handleChunkInfo)
		api.GET("/chunks/:x/:y/alpha/:layer", s.handleAlphaImage)
		api.GET("/chunks/:x/:y/preview", s.handlePreview)
		api.GET("/chunks/:x/:y/export", s.handleExport)
		api.GET("/chunks/:x/:y/snapshots", s.handleSnapshots)
	}

	write := api.Group("")
	if s.cfg.Auth != nil {
		write.Use(middleware.RequireWriter(s.cfg.Auth))
	}
	{
		write.POST("/chunks/:x/:y/restore/:id", s.handleRestore)
		write.POST("/paint", s.handlePaint)
		write.POST("/textures/switch", s.handleSwitchTexture)
		write.POST("/cleanup", s.handleCleanup)
		write.POST("/save", s.handleSave)
	}

	s.router.GET("/health", s.handleHealth)
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start запускает сервер и блокируется до его остановки
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP API listening on %s", s.cfg.Addr)

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown останавливает сервер
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
