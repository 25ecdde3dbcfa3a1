package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"PairSentinel/internal/model"
	"PairSentinel/internal/query"
	"PairSentinel/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), ErrorResponse{Message: err.Error()})
}

// statusFor maps query errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrInvalidRange),
		errors.Is(err, query.ErrInvalidPeriod),
		errors.Is(err, query.ErrInsufficientData):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrNotRefreshing):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) getHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if s.status != nil {
		body["scheduler"] = s.status.State()
		body["lastCycle"] = s.status.LastReport()
	}
	if s.hub != nil {
		body["clients"] = s.hub.ClientCount()
	}
	c.JSON(http.StatusOK, body)
}

// floatQuery parses an optional float query parameter.
func floatQuery(c *gin.Context, name string, def float64) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", query.ErrInvalidRange, name)
	}
	return v, nil
}

func (s *Server) getMetrics(c *gin.Context) {
	min, err := floatQuery(c, "min", 0)
	if err != nil {
		abortWithError(c, err)
		return
	}
	max, err := floatQuery(c, "max", 1)
	if err != nil {
		abortWithError(c, err)
		return
	}
	metrics, err := s.query.MetricsByCorrelationRange(c.Request.Context(), min, max, c.Query("sector"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// instrumentSummary is the list view of an instrument, without its quotes.
type instrumentSummary struct {
	Symbol    string     `json:"symbol"`
	Sector    string     `json:"sector"`
	Quotes    int        `json:"quotes"`
	LastClose float64    `json:"lastClose,omitempty"`
	LastDate  *time.Time `json:"lastDate,omitempty"`
}

func summarize(inst model.Instrument) instrumentSummary {
	sum := instrumentSummary{Symbol: inst.Symbol, Sector: inst.Sector, Quotes: len(inst.Quotes)}
	if n := len(inst.Quotes); n > 0 {
		last := inst.Quotes[n-1]
		sum.LastClose = last.Close
		sum.LastDate = &last.Time
	}
	return sum
}

func (s *Server) getInstruments(c *gin.Context) {
	insts, err := s.query.Instruments(c.Request.Context(), c.Query("sector"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]instrumentSummary, len(insts))
	for i, inst := range insts {
		out[i] = summarize(inst)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getInstrument(c *gin.Context) {
	inst, err := s.query.Instrument(c.Request.Context(), symbolParam(c, "symbol"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func symbolParam(c *gin.Context, name string) string {
	return strings.ToUpper(strings.TrimSpace(c.Param(name)))
}

func (s *Server) getPairStats(c *gin.Context) {
	stats, err := s.query.PairRollingStats(c.Request.Context(), symbolParam(c, "symbol1"), symbolParam(c, "symbol2"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getPairCorrelation(c *gin.Context) {
	corr, err := s.query.PairCorrelation(c.Request.Context(), symbolParam(c, "symbol1"), symbolParam(c, "symbol2"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, corr)
}

func (s *Server) getPairClosePrices(c *gin.Context) {
	prices, err := s.query.PairClosePrices(c.Request.Context(),
		symbolParam(c, "symbol1"), symbolParam(c, "symbol2"), c.Param("period"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

func (s *Server) getPairZScores(c *gin.Context) {
	z, err := s.query.PairZScores(c.Request.Context(), symbolParam(c, "symbol1"), symbolParam(c, "symbol2"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, z)
}

func (s *Server) getSectors(c *gin.Context) {
	names, err := s.query.SectorNames(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (s *Server) getSectorPairs(c *gin.Context) {
	pairs, err := s.query.PairsBySector(c.Request.Context(), c.Query("sector"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pairs)
}

func (s *Server) getHistorical(c *gin.Context) {
	series, err := s.query.HistoricalSeries(c.Request.Context(), symbolParam(c, "symbol"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) getRealtime(c *gin.Context) {
	q, err := s.query.LiveQuote(c.Request.Context(), symbolParam(c, "symbol"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) postUpdateMetrics(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "refresh scheduler not available"})
		return
	}
	report, err := s.status.RefreshNow(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "pair metrics updated", "report": report})
}
