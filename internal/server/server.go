package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hiresight-ai/hiresight/config"
	"github.com/hiresight-ai/hiresight/internal/engine"
	"github.com/hiresight-ai/hiresight/internal/enrich"
	"github.com/hiresight-ai/hiresight/internal/telemetry"
	"github.com/hiresight-ai/hiresight/provider"
	"github.com/hiresight-ai/hiresight/session"
	"github.com/hiresight-ai/hiresight/session/inmemory"
	"github.com/hiresight-ai/hiresight/session/redisstore"
	"github.com/hiresight-ai/hiresight/tools/embedding"
)

// Run wires the full service and serves the HTTP API until the listener
// stops.
func Run(cfg *config.Config) error {
	e := newEcho(cfg)

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}
	embedder := embedding.NewEmbedding(llm)

	var store session.Store
	switch cfg.Storage.SessionStore {
	case "", "inmemory":
		store = inmemory.NewStore()
	case "redis":
		store = redisstore.NewStore(cfg.Storage.Redis, cfg.Storage.SessionTTL)
	default:
		return fmt.Errorf("unsupported session store: %s", cfg.Storage.SessionStore)
	}

	enrichLogger := log.New(log.Writer(), "[ENRICH] ", log.LstdFlags)
	github := enrich.NewGitHubClient(cfg.Enrichment.GitHub, enrichLogger)
	linkedin := enrich.NewLinkedInFetcher(cfg.Enrichment.LinkedIn, llm, enrichLogger)
	enricher := enrich.NewOrchestrator(github, linkedin, enrichLogger)

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.New(nil)
		go func() {
			if err := telemetry.Serve(cfg.Telemetry.MetricsPort, nil); err != nil {
				log.Printf("metrics listener: %v", err)
			}
		}()
	}

	engineLogger := log.New(log.Writer(), "[ENGINE] ", log.LstdFlags)
	eng := engine.New(cfg, llm, embedder, enricher, store, metrics, engineLogger)

	sh := &SessionsHandler{Engine: eng, MaxUploadMB: cfg.Server.MaxUploadMB}
	sh.Register(e.Group("/api/sessions"))

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":10001"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho builds the echo instance with recovery, CORS, the unified JSON
// error handler and the operational endpoints.
func newEcho(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	origin := "*"
	if cfg != nil && cfg.Server.AllowedOrigin != "" {
		origin = cfg.Server.AllowedOrigin
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{origin},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}
