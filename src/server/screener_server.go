package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"market-screener/src/config"
	"market-screener/src/helpers"
	"market-screener/src/interfaces"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// ScreenerServer
// -----------------------------------------------------------------------------

type ScreenerServer struct {
	Config   *config.Config
	Logger   *logger.Logger
	Screener interfaces.IScreener
	Calendar *utils.TradingCalendar
	engine   *gin.Engine
	httpSrv  *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Subscriber]struct{}
	connections atomic.Int32
	broadcast   chan *models.MScreenResult
	register    chan *Subscriber
	unregister  chan *Subscriber
	refresh     chan *Subscriber
	done        chan struct{}
	stopOnce    sync.Once

	// Last published result
	latest     *models.MScreenResult
	stateMutex sync.RWMutex
}

// screenRequest is the POST /api/screen body. Times are exchange-local
// "YYYY-MM-DDTHH:MM"; a bare date means the 16:00 close.
type screenRequest struct {
	Symbols []string              `json:"symbols" binding:"omitempty,dive,required"`
	Start   string                `json:"start" binding:"required"`
	End     string                `json:"end" binding:"required"`
	Filters models.MScreenFilters `json:"filters"`
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewScreenerServer(cfg *config.Config, screener interfaces.IScreener, cal *utils.TradingCalendar, log *logger.Logger) *ScreenerServer {
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &ScreenerServer{
		Config:     cfg,
		Logger:     log,
		Screener:   screener,
		Calendar:   cal,
		engine:     gin.New(),
		clients:    make(map[*Subscriber]struct{}),
		broadcast:  make(chan *models.MScreenResult, 16),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		refresh:    make(chan *Subscriber),
		done:       make(chan struct{}),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	// CORS for local dashboards
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

func (s *ScreenerServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *ScreenerServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.POST("/screen", s.postScreen)
	api.GET("/result", s.getResult)
	api.GET("/config", s.getConfig)
	api.GET("/health", s.getHealth)

	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// MountMetrics serves h at GET /metrics.
func (s *ScreenerServer) MountMetrics(h http.Handler) {
	s.engine.GET("/metrics", gin.WrapH(h))
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *ScreenerServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and serves HTTP until Stop is called.
func (s *ScreenerServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	s.httpSrv = &http.Server{Addr: addr, Handler: s.engine}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *ScreenerServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = s.httpSrv.Shutdown(ctx)
		}
		s.Logger.Info("Server stopped")
	})
	return err
}

// -----------------------------------------------------------------------------

// Publish stores the result as the latest one and queues it for websocket
// clients. A full queue drops the push; the result stays available over REST.
func (s *ScreenerServer) Publish(result *models.MScreenResult) {
	if result == nil {
		return
	}

	s.stateMutex.Lock()
	s.latest = result
	s.stateMutex.Unlock()

	select {
	case s.broadcast <- result:
	default:
		s.Logger.Warning("Broadcast queue full, dropping websocket push")
	}
}

// -----------------------------------------------------------------------------

func (s *ScreenerServer) latestResult() *models.MScreenResult {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.latest
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *ScreenerServer) postScreen(c *gin.Context) {
	var body screenRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := s.toScreenRequest(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.Screener.RunScreen(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if helpers.IsInvalidInput(err) {
			status = http.StatusBadRequest
		}
		s.Logger.Warning("Screen request failed: %v", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	s.Publish(result)
	c.JSON(http.StatusOK, result)
}

// -----------------------------------------------------------------------------

func (s *ScreenerServer) toScreenRequest(body screenRequest) (models.MScreenRequest, error) {
	loc := s.Calendar.Location()

	start, err := utils.ParseMarketTime(body.Start, loc)
	if err != nil {
		return models.MScreenRequest{}, err
	}
	end, err := utils.ParseMarketTime(body.End, loc)
	if err != nil {
		return models.MScreenRequest{}, err
	}

	symbols := body.Symbols
	if len(symbols) == 0 {
		symbols = s.Config.Universe()
	}

	return models.MScreenRequest{
		Symbols: symbols,
		Window:  models.MTimeWindow{Start: start, End: end},
		Filters: body.Filters,
	}, nil
}

// -----------------------------------------------------------------------------

func (s *ScreenerServer) getResult(c *gin.Context) {
	latest := s.latestResult()
	if latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no screen has run yet"})
		return
	}

	if raw := c.Query("symbols"); raw != "" {
		c.JSON(http.StatusOK, filterResult(latest, strings.Split(raw, ",")))
		return
	}
	c.JSON(http.StatusOK, latest)
}

// -----------------------------------------------------------------------------

func (s *ScreenerServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"provider": s.Config.Provider.Type,
		"screener": s.Config.Screener,
		"symbols":  s.Config.Universe(),
	})
}

// -----------------------------------------------------------------------------

func (s *ScreenerServer) getHealth(c *gin.Context) {
	var generatedAt int64
	if latest := s.latestResult(); latest != nil {
		generatedAt = latest.GeneratedAt
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.connections.Load(),
		"latest_result": generatedAt,
	})
}
