package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/jobcatalog/internal/db"
	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/logging"
	"horse.fit/jobcatalog/internal/scheduler"
)

// Catalog is the read/flag side of the posting store.
type Catalog interface {
	Ping(ctx context.Context) error
	ListPostings(ctx context.Context, filter db.PostingFilter) (db.PostingPage, error)
	QueryCatalogStats(ctx context.Context) (*db.CatalogStats, error)
	QueryFilterOptions(ctx context.Context) (*db.FilterOptions, error)
	ToggleFavorite(ctx context.Context, postingUUID string) (bool, bool, error)
	ToggleSentCV(ctx context.Context, postingUUID string) (bool, bool, error)
	HidePosting(ctx context.Context, postingUUID string) (bool, error)
}

type PostingLookup interface {
	GetByUUID(ctx context.Context, postingUUID string) (dedup.Posting, bool, error)
}

type RunLog interface {
	ListRecentRuns(ctx context.Context, limit int) ([]db.ScrapeLogEntry, error)
	LastRunPerSource(ctx context.Context) (map[string]db.ScrapeLogEntry, error)
}

type CycleRunner interface {
	Run(ctx context.Context, only string) (scheduler.CycleReport, error)
}

type Sweeper interface {
	Sweep(ctx context.Context, source string, hours int) (int64, error)
}

type Deps struct {
	Catalog  Catalog
	Postings PostingLookup
	Runs     RunLog
	Cycle    CycleRunner
	Sweeper  Sweeper
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowOrigins    []string
	StalenessHours  int
}

type Server struct {
	deps   Deps
	logger zerolog.Logger
	opts   Options

	// background work (triggered cycles) is bound to this context
	baseCtx context.Context
}

func NewServer(deps Deps, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	allowOrigins := opts.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	staleness := opts.StalenessHours
	if staleness <= 0 {
		staleness = 72
	}

	return &Server{
		deps:    deps,
		logger:  logging.Component(logger, "httpapi"),
		baseCtx: context.Background(),
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowOrigins:    allowOrigins,
			StalenessHours:  staleness,
		},
	}
}

// Handler builds the Echo router without starting a listener.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			msg := "http request"
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
				msg = "http request failed"
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg(msg)
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)

	jobs := api.Group("/jobs")
	jobs.GET("", s.handleListJobs)
	jobs.GET("/stats", s.handleJobStats)
	jobs.GET("/filters", s.handleFilterOptions)
	jobs.GET("/meta", s.handleMeta)
	jobs.GET("/:uuid", s.handleJobDetail)
	jobs.POST("/:uuid/favorite", s.handleToggleFavorite)
	jobs.POST("/:uuid/sentcv", s.handleToggleSentCV)
	jobs.POST("/:uuid/hide", s.handleHide)

	scrape := api.Group("/scrape")
	scrape.GET("/status", s.handleScrapeStatus)
	scrape.GET("/sites", s.handleScrapeSites)
	scrape.POST("/trigger", s.handleScrapeTrigger)
	scrape.POST("/sweep", s.handleSweep)

	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.deps.Catalog == nil {
		return fmt.Errorf("server is not initialized")
	}
	s.baseCtx = ctx

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("jobcatalog api started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("jobcatalog api stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if v, ok := he.Message.(string); ok && strings.TrimSpace(v) != "" {
			message = v
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}
