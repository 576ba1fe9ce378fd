package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/tileworld/internal/game"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Version - версия API мира
const Version = "v0.1.0"

// RestServer - REST API просмотра и управления миром
type RestServer struct {
	router  *gin.Engine
	session *game.Session
	log     *logging.Logger
	metrics *ServerMetrics
	addr    string
	timeout time.Duration
	http    *http.Server
}

// Config содержит конфигурацию REST сервера
type Config struct {
	Addr     string        // адрес host:port
	Session  *game.Session // сессия мира, цикл симуляции должен быть запущен
	Service  string        // имя сервиса для трейсов и метрик
	Timeout  time.Duration // ожидание цикла симуляции на команду, 0 - 5 с
	Logger   *logging.Logger
	Register prometheus.Registerer // nil - регистр по умолчанию
	Gatherer prometheus.Gatherer   // nil - регистр по умолчанию
}

// GenericResponse - общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создаёт REST сервер
func NewRestServer(cfg Config) *RestServer {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	if cfg.Service == "" {
		cfg.Service = "tileworld"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetAPILogger()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware(cfg.Service))
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("tileworld_api", cfg.Register)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, cfg.Gatherer)

	rs := &RestServer{
		router:  router,
		session: cfg.Session,
		log:     cfg.Logger,
		metrics: NewServerMetrics(),
		addr:    cfg.Addr,
		timeout: cfg.Timeout,
	}
	rs.setupRoutes()
	return rs
}

func (rs *RestServer) setupRoutes() {
	rs.router.Use(corsMiddleware())

	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.GET("/server", rs.handleServerInfo)

	session := api.Group("/session")
	{
		session.GET("", rs.handleSession)
		session.POST("/reload", rs.handleReload)
		session.POST("/local", rs.handleSetLocal)
	}

	maps := api.Group("/maps/:name")
	maps.Use(rs.mapMiddleware())
	{
		maps.GET("/status", rs.handleMapStatus)
		maps.GET("/tile", rs.handleTile)
		maps.GET("/tile_at", rs.handleTileAt)
		maps.GET("/can_move", rs.handleCanMove)
		maps.GET("/minimap.png", rs.handleMinimap)
		maps.GET("/light", rs.handleLight)
		maps.GET("/layers", rs.handleLayers)

		maps.POST("/regenerate", rs.handleRegenerate)
		maps.POST("/hit", rs.handleHit)
		maps.POST("/place", rs.handlePlace)
		maps.POST("/remove", rs.handleRemove)
	}
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler { return rs.router }

// Start запускает REST сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.http = &http.Server{
		Addr:              rs.addr,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rs.log.Info("🌐 REST API слушает %s", rs.addr)
	if err := rs.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop завершает сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.http == nil {
		return nil
	}
	return rs.http.Shutdown(ctx)
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"session": rs.session.State().String(),
		"time":    time.Now().Unix(),
	})
}

// handleServerInfo возвращает информацию о процессе
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	cpuPercent, _ := rs.metrics.GetCPUUsage()
	rssMB, _ := rs.metrics.GetRSS()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data: gin.H{
			"version":     Version,
			"name":        "Tile World Server",
			"status":      rs.session.State().String(),
			"uptime":      rs.metrics.GetUptime(),
			"memory_mb":   rs.metrics.GetMemoryUsage(),
			"rss_mb":      rssMB,
			"cpu_percent": cpuPercent,
			"memory":      rs.metrics.GetDetailedMemoryStats(),
		},
	})
}

// commandContext ограничивает ожидание цикла симуляции
func (rs *RestServer) commandContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), rs.timeout)
}

// fail переводит ошибку сессии в HTTP-ответ
func (rs *RestServer) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrUnknownMap):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrRejected):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		rs.log.Error("API: %v", err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, GenericResponse{Success: false, Message: msg})
}
