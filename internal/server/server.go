package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"PairSentinel/internal/model"
	"PairSentinel/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Querier is the read-side the HTTP routes expose.
type Querier interface {
	MetricsByCorrelationRange(ctx context.Context, min, max float64, sector string) ([]model.PairMetrics, error)
	PairRollingStats(ctx context.Context, symbol1, symbol2 string) (*model.RollingPairStats, error)
	PairClosePrices(ctx context.Context, symbol1, symbol2, period string) (*model.PairClosePrices, error)
	PairCorrelation(ctx context.Context, symbol1, symbol2 string) (*model.PairCorrelation, error)
	Instruments(ctx context.Context, sector string) ([]model.Instrument, error)
	Instrument(ctx context.Context, symbol string) (*model.Instrument, error)
	SectorNames(ctx context.Context) ([]string, error)
	PairsBySector(ctx context.Context, sector string) ([]model.SectorPair, error)
	PairZScores(ctx context.Context, symbol1, symbol2 string) (*model.PairZScores, error)
	HistoricalSeries(ctx context.Context, symbol string) (model.PriceSeries, error)
	LiveQuote(ctx context.Context, symbol string) (*model.LiveQuote, error)
}

// Controller reports the refresh loop's state and triggers manual refreshes.
type Controller interface {
	State() scheduler.State
	LastReport() scheduler.CycleReport
	RefreshNow(ctx context.Context) (scheduler.CycleReport, error)
}

// Server is the HTTP and websocket surface of the engine.
type Server struct {
	engine         *gin.Engine
	query          Querier
	status         Controller
	hub            *Hub
	allowedOrigins []string
	upgrader       websocket.Upgrader
	started        time.Time
}

// New builds the gin engine. status may be nil. An origin of "*" allows any.
func New(q Querier, status Controller, hub *Hub, allowedOrigins []string, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		engine:         gin.New(),
		query:          q,
		status:         status,
		hub:            hub,
		allowedOrigins: allowedOrigins,
		started:        time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return s.originAllowed(r.Header.Get("Origin")) },
	}

	s.engine.Use(gin.Recovery(), requestLogger(), s.cors())
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/sectors", s.getSectors)
	api.GET("/sectors/pairs", s.getSectorPairs)
	api.GET("/instruments", s.getInstruments)
	api.GET("/instruments/:symbol", s.getInstrument)

	rt := api.Group("/realtime-stocks")
	rt.GET("/metrics", s.getMetrics)
	rt.POST("/update-metrics", s.postUpdateMetrics)
	rt.GET("/historical/:symbol", s.getHistorical)
	rt.GET("/realtime/:symbol", s.getRealtime)

	pairs := api.Group("/stocks/pairs/:symbol1/:symbol2")
	pairs.GET("/stats", s.getPairStats)
	pairs.GET("/correlation", s.getPairCorrelation)
	pairs.GET("/zscore", s.getPairZScores)
	pairs.GET("/close-prices/:period", s.getPairClosePrices)

	s.engine.GET("/ws", s.handleWebSocket)
}

func (s *Server) originAllowed(origin string) bool {
	if origin == "" || slices.Contains(s.allowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.allowedOrigins, origin)
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, Origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Microsecond),
			"client":  c.ClientIP(),
		}).Debug("[server] request")
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	if s.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "websocket broadcast disabled"})
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("[server] websocket upgrade: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	if !s.hub.join(client) {
		conn.Close()
		return
	}
	log.WithFields(log.Fields{"client": client.id, "remote": c.ClientIP()}).Info("[server] websocket client connected")

	go client.writePump()
	go client.readPump()
}
