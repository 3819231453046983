// Package api exposes the screener over a small JSON HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/logger"
	"MarketScreener/internal/model"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/strategy"
)

// AnalysisRows is how many trailing bars the analyze endpoint returns.
const AnalysisRows = 10

// Backend is what the handlers need from the screening service.
type Backend interface {
	Tickers(ctx context.Context) ([]string, error)
	Screen(ctx context.Context, opts strategy.Options, trigger recorder.Trigger) (*collector.ScreenResult, string, error)
	Analyze(ctx context.Context, ticker string) (*collector.Analysis, error)
	Refresh()
	RecentRuns(limit int) ([]recorder.RunSummary, error)
}

// Server serves the JSON API.
type Server struct {
	echo     *echo.Echo
	backend  Backend
	defaults strategy.Options
	log      *zap.Logger
}

// NewServer builds the router. defaults seed the screen options before query overrides.
func NewServer(backend Backend, defaults strategy.Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", c.Request().Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	s := &Server{echo: e, backend: backend, defaults: defaults.Normalize(), log: log}
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	s.RegisterRoutes(e.Group("/api/v1"))
	return s
}

// RegisterRoutes registers the API routes to the Echo group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/tickers", s.GetTickers)
	g.GET("/analyze/:ticker", s.GetAnalysis)
	g.GET("/screen", s.GetScreen)
	g.POST("/refresh", s.PostRefresh)
	g.GET("/runs", s.GetRuns)
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("HTTP server starting", zap.String("address", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func fail(c echo.Context, status int, err error) error {
	return c.JSON(status, ErrorResponse{Error: err.Error()})
}

// GetTickers returns the screening universe.
func (s *Server) GetTickers(c echo.Context) error {
	tickers, err := s.backend.Tickers(c.Request().Context())
	if err != nil {
		if errors.Is(err, collector.ErrNoTickers) {
			return fail(c, http.StatusNotFound, err)
		}
		s.log.Error("load tickers", zap.Error(err))
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(tickers), "tickers": tickers})
}

// GetAnalysis returns the latest indicators and recommendation for one ticker.
func (s *Server) GetAnalysis(c echo.Context) error {
	tickers := collector.NormalizeTickers([]string{c.Param("ticker")})
	if len(tickers) == 0 {
		return fail(c, http.StatusBadRequest, errors.New("ticker is required"))
	}
	a, err := s.backend.Analyze(c.Request().Context(), tickers[0])
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, newAnalysisResponse(a, AnalysisRows))
	case collector.IsDataUnavailable(err), errors.Is(err, strategy.ErrNoRecommendation):
		return fail(c, http.StatusNotFound, err)
	default:
		s.log.Error("analyze", logger.Ticker(tickers[0]), zap.Error(err))
		return fail(c, http.StatusBadGateway, err)
	}
}

// screenOptions applies query overrides on top of the configured defaults.
func (s *Server) screenOptions(c echo.Context) (strategy.Options, error) {
	opts := s.defaults
	if v := c.QueryParam("policy"); v != "" {
		p, err := model.ParsePolicy(strings.ToLower(v))
		if err != nil {
			return opts, err
		}
		opts.Policy = p
	}
	if v := c.QueryParam("ranking"); v != "" {
		r, err := model.ParseRanking(strings.ToLower(v))
		if err != nil {
			return opts, err
		}
		opts.Ranking = r
	}
	if v := c.QueryParam("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, errors.New("top must be a positive integer")
		}
		opts.TopK = n
	}
	if v := c.QueryParam("max_eligible"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("max_eligible must be a non-negative integer")
		}
		opts.MaxEligible = n
	}
	return opts, nil
}

// GetScreen runs a screen and returns the ranked candidates.
func (s *Server) GetScreen(c echo.Context) error {
	opts, err := s.screenOptions(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	res, id, err := s.backend.Screen(c.Request().Context(), opts, recorder.TriggerAPI)
	if err != nil {
		if errors.Is(err, collector.ErrNoTickers) {
			return fail(c, http.StatusNotFound, err)
		}
		s.log.Error("screen", zap.Error(err))
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, newScreenResponse(res, id))
}

// PostRefresh discards cached market data.
func (s *Server) PostRefresh(c echo.Context) error {
	s.backend.Refresh()
	return c.JSON(http.StatusOK, echo.Map{"status": "cleared", "at": time.Now().UTC()})
}

// GetRuns lists recent recorded screening runs.
func (s *Server) GetRuns(c echo.Context) error {
	limit := 10
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fail(c, http.StatusBadRequest, errors.New("limit must be a positive integer"))
		}
		limit = n
	}
	runs, err := s.backend.RecentRuns(limit)
	if err != nil {
		s.log.Error("list runs", zap.Error(err))
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, runs)
}
