package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ckwame-jpg/portfolio/clock"
	"github.com/ckwame-jpg/portfolio/konami"
)

// detectorPool holds one konami detector per session.
type detectorPool struct {
	mu      sync.Mutex
	clock   clock.Clock
	pattern []string
	idle    time.Duration
	entries map[string]*poolEntry
}

type poolEntry struct {
	det      *konami.Detector[string]
	lastSeen time.Time
}

func newDetectorPool(clk clock.Clock, pattern []string, idle time.Duration) *detectorPool {
	return &detectorPool{
		clock:   clk,
		pattern: pattern,
		idle:    idle,
		entries: make(map[string]*poolEntry),
	}
}

func (p *detectorPool) get(sid string) *konami.Detector[string] {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[sid]
	if !ok {
		e = &poolEntry{det: konami.New(p.clock, p.pattern)}
		p.entries[sid] = e
	}
	e.lastSeen = p.clock.Now()
	return e.det
}

// peek returns the session's state without creating a detector.
func (p *detectorPool) peek(sid string) konami.State {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[sid]; ok {
		return e.det.State()
	}
	return konami.State{}
}

// sweep disposes detectors idle for longer than the pool's idle period.
func (p *detectorPool) sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for sid, e := range p.entries {
		if p.clock.Now().Sub(e.lastSeen) > p.idle {
			e.det.Dispose()
			delete(p.entries, sid)
			n++
		}
	}
	return n
}

func (p *detectorPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// konamiRequest carries one key or a batch of keys in press order.
type konamiRequest struct {
	Key  string   `json:"key" binding:"omitempty,max=32"`
	Keys []string `json:"keys" binding:"omitempty,max=64,dive,required,max=32"`
}

func (r konamiRequest) tokens() []string {
	if r.Key == "" {
		return r.Keys
	}
	return append([]string{r.Key}, r.Keys...)
}

func (s *server) konamiResponse(st konami.State) gin.H {
	return gin.H{
		"progress":  st.Progress,
		"length":    len(s.cfg.KonamiPattern),
		"triggered": st.Triggered,
	}
}

func (s *server) konamiState(c *gin.Context) {
	c.JSON(http.StatusOK, s.konamiResponse(s.konami.peek(sessionID(c))))
}

// konamiKey feeds key presses to the session's detector in order.
func (s *server) konamiKey(c *gin.Context) {
	var req konamiRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.tokens()) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid key"})
		return
	}

	sid := sessionID(c)
	det := s.konami.get(sid)
	for _, key := range req.tokens() {
		if !det.OnToken(key) {
			continue
		}
		s.log.Info("konami code entered", "component", "konami")
		s.metrics.konamiTriggered(c.Request.Context())
		s.visits.recordEvent(eventKonamiTriggered, sid)
	}
	c.JSON(http.StatusOK, s.konamiResponse(det.State()))
}
