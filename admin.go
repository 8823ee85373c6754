// admin.go - privacy-conscious visit counting and the admin dashboard
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ckwame-jpg/portfolio/clock"
)

// Event kinds recorded in site_events.
const (
	eventIntroCompleted  = "intro_completed"
	eventKonamiTriggered = "konami_triggered"
	eventPlaygroundRun   = "playground_run"
)

// retention is how long visits and events are kept.
const retention = 365 * 24 * time.Hour

type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type PathStat struct {
	Path   string `json:"path"`
	Visits int64  `json:"visits"`
}

type AdminStats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	IntroCompletions int64           `json:"intro_completions"`
	KonamiTriggers   int64           `json:"konami_triggers"`
	PlaygroundRuns   int64           `json:"playground_runs"`
	TopPaths         []PathStat      `json:"top_paths"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
}

// adminAuth holds the per-process admin cookie token and the salt used to
// hash client identifiers.
type adminAuth struct {
	token    string
	salt     string
	username string
	password string
	log      *slog.Logger
}

func newAdminAuth(cfg config, logger *slog.Logger) *adminAuth {
	a := &adminAuth{
		token:    generateToken(),
		salt:     generateToken(),
		username: cfg.AdminUsername,
		password: cfg.AdminPassword,
		log:      logger.With("component", "admin"),
	}
	// Default credentials are for local development only.
	if gin.Mode() == gin.DebugMode {
		if a.username == "" {
			a.username = "admin"
			a.log.Warn("using default admin username, set ADMIN_USERNAME")
		}
		if a.password == "" {
			a.password = "admin123"
			a.log.Warn("using default admin password, set ADMIN_PASSWORD")
		}
	}
	a.log.Info("admin access available at /admin/login", "enabled", a.enabled())
	return a
}

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("generate token: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// hashWithSalt returns a short salted digest, stable for the life of the
// process.
func hashWithSalt(salt, v string) string {
	h := sha256.New()
	h.Write([]byte(v + salt))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (a *adminAuth) enabled() bool {
	return a.username != "" && a.password != ""
}

func (a *adminAuth) checkCredentials(username, password string) bool {
	if !a.enabled() {
		return false
	}
	u := subtle.ConstantTimeCompare([]byte(username), []byte(a.username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(a.password))
	return u&p == 1
}

func (a *adminAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("admin_token")
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// visitorLog records page views and site events with hashed identifiers.
type visitorLog struct {
	db    *sql.DB
	salt  string
	clock clock.Clock
	log   *slog.Logger
	wg    sync.WaitGroup
}

func newVisitorLog(db *sql.DB, salt string, clk clock.Clock, logger *slog.Logger) (*visitorLog, error) {
	v := &visitorLog{db: db, salt: salt, clock: clk, log: logger.With("component", "visitors")}
	if err := v.migrate(); err != nil {
		return nil, fmt.Errorf("migrate visitor tables: %w", err)
	}
	return v, nil
}

func (v *visitorLog) migrate() error {
	_, err := v.db.Exec(`
	CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		timestamp DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = v.db.Exec(`
	CREATE TABLE IF NOT EXISTS site_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		hashed_session TEXT NOT NULL,
		timestamp DATETIME NOT NULL
	)`)
	return err
}

func (v *visitorLog) hash(s string) string {
	return hashWithSalt(v.salt, s)
}

// untracked are prefixes that are not page views.
var untracked = []string{
	"/static/", "/images/", "/admin", "/favicon", "/privacy",
	"/api/", "/intro/", "/heatmap", "/theme", "/lost/", "/contact",
}

// middleware counts GET page views. Do Not Track is honoured.
func (v *visitorLog) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet || c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}
		for _, p := range untracked {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}
		ip, ua := c.ClientIP(), c.GetHeader("User-Agent")
		v.background(func(ctx context.Context) {
			v.trackVisit(ctx, ip, ua, path)
		})
		c.Next()
	}
}

// background runs fn off the request path.
func (v *visitorLog) background(fn func(ctx context.Context)) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

// wait blocks until background writes are done.
func (v *visitorLog) wait() {
	v.wg.Wait()
}

func (v *visitorLog) trackVisit(ctx context.Context, ip, userAgent, path string) {
	_, err := v.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)
	`, v.hash(ip), userAgent, path, v.clock.Now().UTC())
	if err != nil {
		v.log.Error("record visitor", "err", err)
	}
}

func (v *visitorLog) recordEvent(kind, sid string) {
	hashed := v.hash(sid)
	v.background(func(ctx context.Context) {
		_, err := v.db.ExecContext(ctx, `
			INSERT INTO site_events (kind, hashed_session, timestamp)
			VALUES (?, ?, ?)
		`, kind, hashed, v.clock.Now().UTC())
		if err != nil {
			v.log.Error("record event", "kind", kind, "err", err)
		}
	})
}

// cleanup removes visits and events older than the retention period.
func (v *visitorLog) cleanup(ctx context.Context) (int64, error) {
	cutoff := v.clock.Now().UTC().Add(-retention)
	var total int64
	for _, table := range []string{"visitors", "site_events"} {
		res, err := v.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE timestamp < ?`, cutoff)
		if err != nil {
			return total, fmt.Errorf("cleanup %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if total > 0 {
		v.log.Info("privacy cleanup", "removed", total)
	}
	return total, nil
}

// forget deletes everything recorded for one client.
func (v *visitorLog) forget(ctx context.Context, ip, sid string) (int64, error) {
	var total int64
	res, err := v.db.ExecContext(ctx, `DELETE FROM visitors WHERE hashed_ip = ?`, v.hash(ip))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	total += n
	res, err = v.db.ExecContext(ctx, `DELETE FROM site_events WHERE hashed_session = ?`, v.hash(sid))
	if err != nil {
		return total, err
	}
	n, _ = res.RowsAffected()
	return total + n, nil
}

func (v *visitorLog) stats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{}
	now := v.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{today}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{now.Add(-7 * 24 * time.Hour)}},
		{&stats.IntroCompletions, `SELECT COUNT(*) FROM site_events WHERE kind = ?`, []any{eventIntroCompleted}},
		{&stats.KonamiTriggers, `SELECT COUNT(*) FROM site_events WHERE kind = ?`, []any{eventKonamiTriggered}},
		{&stats.PlaygroundRuns, `SELECT COUNT(*) FROM site_events WHERE kind = ?`, []any{eventPlaygroundRun}},
	}
	for _, q := range counts {
		if err := v.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dst); err != nil {
			return nil, err
		}
	}

	rows, err := v.db.QueryContext(ctx, `
		SELECT path, COUNT(*) AS visits
		FROM visitors
		GROUP BY path
		ORDER BY visits DESC, path
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p PathStat
		if err := rows.Scan(&p.Path, &p.Visits); err != nil {
			return nil, err
		}
		stats.TopPaths = append(stats.TopPaths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.RecentVisitors, err = v.recent(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

func (v *visitorLog) recent(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visitors []VisitorMetric
	for rows.Next() {
		var vm VisitorMetric
		if err := rows.Scan(&vm.ID, &vm.HashedIP, &vm.UserAgent, &vm.Path, &vm.Timestamp); err != nil {
			return nil, err
		}
		visitors = append(visitors, vm)
	}
	return visitors, rows.Err()
}

func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{"title": "Privacy Policy"})
	})

	// Visitors can drop what was recorded about them.
	r.POST("/privacy/forget", func(c *gin.Context) {
		n, err := s.visits.forget(c.Request.Context(), c.ClientIP(), sessionID(c))
		if err != nil {
			s.log.Error("forget visitor", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete data"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": n})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		who := s.visits.hash(c.ClientIP())
		if !s.admin.checkCredentials(c.PostForm("username"), c.PostForm("password")) {
			s.admin.log.Warn("failed admin login", "client", who)
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{"error": "Invalid credentials"})
			return
		}
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie("admin_token", s.admin.token, 3600*24, "/admin", "", false, true)
		s.admin.log.Info("admin login", "client", who)
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie("admin_token", "", -1, "/admin", "", false, true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin", s.admin.middleware())

	admin.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.visits.stats(c.Request.Context())
		if err != nil {
			s.admin.log.Error("load admin stats", "err", err)
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":      stats,
			"konamiLive": s.konami.len(),
		})
	})

	admin.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.visits.stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	admin.GET("/visitors", func(c *gin.Context) {
		visitors, err := s.visits.recent(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load visitors"})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{"visitors": visitors})
	})

	admin.POST("/privacy/cleanup", func(c *gin.Context) {
		n, err := s.visits.cleanup(c.Request.Context())
		if err != nil {
			s.admin.log.Error("privacy cleanup", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": n})
	})

	admin.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.visits.stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		c.JSON(http.StatusOK, stats)
	})
}
