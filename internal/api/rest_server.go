package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/mmo-sim/internal/logging"
	"github.com/annel0/mmo-sim/internal/middleware"
	"github.com/annel0/mmo-sim/internal/navmesh"
	"github.com/annel0/mmo-sim/internal/vec"
	"github.com/annel0/mmo-sim/internal/world"
)

// Sessions - доступ API к сессиям процесса
type Sessions interface {
	List() []world.SessionStats
	Get(id string) (*world.Session, error)
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr     string // адрес для запуска сервера
	Sessions Sessions
	// Реестр метрик, общий с симуляцией. nil - отдельный реестр.
	Registry *prometheus.Registry
	// Требовать JWT администратора для /api
	RequireAdmin bool
	// Число подключенных клиентов, может быть nil
	Clients func() int
}

// RestServer - административный и отладочный HTTP API
type RestServer struct {
	router   *gin.Engine
	sessions Sessions
	clients  func() int
	metrics  *ServerMetrics
	log      *logging.Logger

	addr string
	srv  *http.Server
	ln   net.Listener
}

// GenericResponse - общий формат ответа
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Addr == "" {
		config.Addr = ":8088"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware("admin_api"))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw := middleware.NewPrometheusMiddleware("admin_api", config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Registry)

	rs := &RestServer{
		router:   router,
		sessions: config.Sessions,
		clients:  config.Clients,
		metrics:  NewServerMetrics(),
		log:      logging.GetComponentLogger("api"),
		addr:     config.Addr,
	}
	rs.setupRoutes(config.RequireAdmin)
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes(requireAdmin bool) {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	if requireAdmin {
		api.Use(rs.jwtMiddleware(), rs.adminMiddleware())
	}
	{
		api.GET("/server", rs.handleServerInfo)
		api.GET("/sessions", rs.handleSessions)
		api.GET("/sessions/:id", rs.handleSession)
		api.GET("/sessions/:id/path", rs.handlePath)
		api.GET("/sessions/:id/clamp", rs.handleClamp)
	}
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler { return rs.router }

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleServerInfo возвращает информацию о процессе и хосте
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	cpuPercent, _ := rs.metrics.GetCPUUsage()
	hostMem, _ := rs.metrics.GetHostMemory()

	info := map[string]interface{}{
		"name":           "mmo-sim",
		"status":         "running",
		"uptime":         rs.metrics.GetUptime(),
		"memory_mb":      fmt.Sprintf("%.1f", rs.metrics.GetMemoryUsage()),
		"cpu_percent":    fmt.Sprintf("%.1f", cpuPercent),
		"host_memory":    fmt.Sprintf("%.1f", hostMem),
		"server_time":    time.Now().Unix(),
		"memory_details": rs.metrics.GetDetailedMemoryStats(),
	}
	if rs.sessions != nil {
		info["sessions"] = len(rs.sessions.List())
	}
	if rs.clients != nil {
		info["clients"] = rs.clients()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data:    info,
	})
}

// handleSessions возвращает статистику всех сессий
func (rs *RestServer) handleSessions(c *gin.Context) {
	var list []world.SessionStats
	if rs.sessions != nil {
		list = rs.sessions.List()
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список сессий",
		Data:    list,
	})
}

// handleSession возвращает статистику сессии и сводку ее навмеша
func (rs *RestServer) handleSession(c *gin.Context) {
	sess, ok := rs.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Сессия",
		Data: gin.H{
			"stats":   sess.Stats(),
			"navmesh": sess.NavMesh().Stats(),
		},
	})
}

// PathResponse - результат отладочного поиска пути
type PathResponse struct {
	Found  bool       `json:"found"`
	Points []vec.Vec3 `json:"points"`
	Length float64    `json:"length"`
}

// handlePath ищет путь по навмешу сессии: ?from=x,y,z&to=x,y,z[&nearest=true]
func (rs *RestServer) handlePath(c *gin.Context) {
	sess, ok := rs.session(c)
	if !ok {
		return
	}
	from, to, ok := rs.endpoints(c)
	if !ok {
		return
	}

	nav := sess.NavMesh()
	var path []vec.Vec3
	if c.Query("nearest") == "true" {
		path = nav.FindPathNearest(from, to)
	} else {
		path = nav.FindPath(from, to)
	}
	if path == nil {
		path = []vec.Vec3{}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Путь",
		Data: PathResponse{
			Found:  len(path) > 0,
			Points: path,
			Length: navmesh.PathLength(path),
		},
	})
}

// ClampResponse - результат отладочного ограничения движения
type ClampResponse struct {
	Point     vec.Vec3 `json:"point"`
	Clamped   bool     `json:"clamped"`
	Walkable  bool     `json:"walkable"`
	Travelled float64  `json:"travelled"`
}

// handleClamp ограничивает движение from -> to границами навмеша
func (rs *RestServer) handleClamp(c *gin.Context) {
	sess, ok := rs.session(c)
	if !ok {
		return
	}
	from, to, ok := rs.endpoints(c)
	if !ok {
		return
	}

	nav := sess.NavMesh()
	point := nav.ClampMovement(from, to)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Движение",
		Data: ClampResponse{
			Point:     point,
			Clamped:   point.PlanarDistance(to) > 1e-6,
			Walkable:  nav.CheckPath(from, to),
			Travelled: from.PlanarDistance(point),
		},
	})
}

func (rs *RestServer) session(c *gin.Context) (*world.Session, bool) {
	if rs.sessions == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Сессии недоступны"})
		return nil, false
	}
	sess, err := rs.sessions.Get(c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, world.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, GenericResponse{Message: err.Error()})
		return nil, false
	}
	return sess, true
}

func (rs *RestServer) endpoints(c *gin.Context) (vec.Vec3, vec.Vec3, bool) {
	from, err := parsePoint(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "from: " + err.Error()})
		return vec.Vec3{}, vec.Vec3{}, false
	}
	to, err := parsePoint(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "to: " + err.Error()})
		return vec.Vec3{}, vec.Vec3{}, false
	}
	return from, to, true
}

// parsePoint разбирает точку вида "x,y,z"
func parsePoint(s string) (vec.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return vec.Vec3{}, fmt.Errorf("ожидается x,y,z, получено %q", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("координата %d: %w", i, err)
		}
		xyz[i] = v
	}
	return vec.New(xyz[0], xyz[1], xyz[2]), nil
}

// Start запускает REST сервер в отдельной горутине
func (rs *RestServer) Start() error {
	ln, err := net.Listen("tcp", rs.addr)
	if err != nil {
		return err
	}
	rs.ln = ln
	rs.srv = &http.Server{Handler: rs.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := rs.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.log.Error("REST сервер: %v", err)
		}
	}()
	rs.log.Info("🌐 REST API запущен на %s", ln.Addr())
	return nil
}

// Stop останавливает сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.srv == nil {
		return nil
	}
	return rs.srv.Shutdown(ctx)
}
