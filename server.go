package main

import (
	"context"
	"database/sql"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ckwame-jpg/portfolio/clock"
	"github.com/ckwame-jpg/portfolio/contributions"
	"github.com/ckwame-jpg/portfolio/intro"
	"github.com/ckwame-jpg/portfolio/playground"
	"github.com/ckwame-jpg/portfolio/session"
)

// deps are the collaborators a server is built from.
type deps struct {
	db       *sql.DB
	sessions session.Store
	clock    clock.Clock
	logger   *slog.Logger
	github   *contributions.Client
	runner   playground.Runner
	meters   metric.MeterProvider
}

type server struct {
	cfg      config
	log      *slog.Logger
	db       *sql.DB
	sessions session.Store
	clock    clock.Clock

	script  intro.Script
	timing  intro.Timing
	konami  *detectorPool
	github  *contributions.Client
	catalog *playground.Catalog
	runner  playground.Runner
	content *siteContent
	limiter *rateLimiter
	keys    *rateLimiter
	metrics *siteMetrics
	admin   *adminAuth
	visits  *visitorLog
}

func newServer(cfg config, d deps) (*server, error) {
	if d.logger == nil {
		d.logger = slog.Default()
	}
	s := &server{
		cfg:      cfg,
		log:      d.logger,
		db:       d.db,
		sessions: d.sessions,
		clock:    d.clock,
		github:   d.github,
		runner:   d.runner,
		catalog:  playground.DefaultCatalog(),
		konami:   newDetectorPool(d.clock, cfg.KonamiPattern, 10*time.Minute),
		limiter:  newIPRateLimiter(d.clock, 5, 20),
		keys:     newSessionRateLimiter(d.clock, 50, 100),
	}

	script, timing, err := loadIntroScript(cfg.IntroScript)
	if err != nil {
		return nil, err
	}
	s.script, s.timing = script, timing

	if s.content, err = loadSiteContent(); err != nil {
		return nil, err
	}
	if d.meters == nil {
		d.meters = otel.GetMeterProvider()
	}
	if s.metrics, err = newSiteMetrics(d.meters); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	s.admin = newAdminAuth(cfg, d.logger)
	if s.visits, err = newVisitorLog(d.db, s.admin.salt, d.clock, d.logger); err != nil {
		return nil, err
	}
	return s, nil
}

func loadIntroScript(path string) (intro.Script, intro.Timing, error) {
	if path == "" {
		script, timing := intro.DefaultScript()
		return script, timing, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, intro.Timing{}, fmt.Errorf("open intro script: %w", err)
	}
	defer f.Close()
	return intro.LoadScript(f)
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.SetFuncMap(template.FuncMap{
		"level": contributions.Level,
	})
	r.LoadHTMLGlob("templates/*")

	r.Static("/images", "./images")
	r.Static("/static", "./static")

	r.Use(sessionMiddleware(), s.visits.middleware())

	r.GET("/", s.index)
	r.GET("/intro/stream", s.introStream)
	r.GET("/heatmap", s.heatmap)
	r.POST("/theme", toggleTheme)

	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{"title": "Contact Me"})
	})
	r.POST("/contact", s.contact)

	// Key presses arrive at typing speed and have their own budget.
	keys := r.Group("/api/konami", s.keys.middleware())
	keys.GET("", s.konamiState)
	keys.POST("", s.konamiKey)

	api := r.Group("/api", s.limiter.middleware())
	api.GET("/github/contributions", s.contributionsJSON)
	api.GET("/playground/endpoints", s.playgroundEndpoints)
	api.POST("/playground/run", s.playgroundRun)

	r.POST("/lost/terminal", lostTerminal)
	r.NoRoute(notFound)

	s.setupAdminRoutes(r)
	return r
}

func (s *server) index(c *gin.Context) {
	c.Header("Accept-CH", "Sec-CH-Prefers-Reduced-Motion")
	c.HTML(http.StatusOK, "index.html", gin.H{
		"content":        s.content,
		"theme":          themeFromCookie(c),
		"playgroundMode": s.cfg.PlaygroundMode,
	})
}

type sessionCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// janitor evicts idle konami detectors, rate limiters and expired session
// flags every interval until ctx is done.
func (s *server) janitor(ctx context.Context, every time.Duration) {
	for {
		tick := make(chan struct{})
		t := s.clock.AfterFunc(every, func() { close(tick) })
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-tick:
			s.sweep(ctx)
		}
	}
}

func (s *server) sweep(ctx context.Context) {
	if n := s.konami.sweep(); n > 0 {
		s.log.Debug("evicted idle konami detectors", "count", n)
	}
	s.limiter.sweep(3 * time.Minute)
	s.keys.sweep(3 * time.Minute)
	if sc, ok := s.sessions.(sessionCleaner); ok {
		if _, err := sc.Cleanup(ctx); err != nil {
			s.log.Warn("session cleanup failed", "err", err)
		}
	}
}
