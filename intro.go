package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ckwame-jpg/portfolio/intro"
	"github.com/ckwame-jpg/portfolio/session"
)

// sessionFlag backs the intro's played flag with the session store. Store
// errors are logged and read as "not played".
type sessionFlag struct {
	ctx      context.Context
	store    session.Store
	sid      string
	log      *slog.Logger
	onMarked func()
}

func (f *sessionFlag) Played() bool {
	played, err := f.store.IntroPlayed(f.ctx, f.sid)
	if err != nil {
		f.log.Warn("read intro flag", "err", err)
		return false
	}
	return played
}

func (f *sessionFlag) MarkPlayed() {
	// The request may already be gone when the last frame is revealed.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.store.MarkIntroPlayed(ctx, f.sid); err != nil {
		f.log.Warn("mark intro played", "err", err)
		return
	}
	if f.onMarked != nil {
		f.onMarked()
	}
}

func prefersReducedMotion(c *gin.Context) bool {
	return c.GetHeader("Sec-CH-Prefers-Reduced-Motion") == "reduce" || c.Query("reduced") == "1"
}

// offerFrame replaces whatever frame is waiting in ch with f.
func offerFrame(ch chan intro.Frame, f intro.Frame) {
	for {
		select {
		case ch <- f:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// introStream plays the intro for this session as a stream of "frame"
// events. The stream ends after the finished frame or when the client goes
// away, which disposes the animator.
func (s *server) introStream(c *gin.Context) {
	ctx := c.Request.Context()
	sid := sessionID(c)
	log := s.log.With("component", "intro")

	frames := make(chan intro.Frame, 1)
	flag := &sessionFlag{
		ctx:   ctx,
		store: s.sessions,
		sid:   sid,
		log:   log,
		onMarked: func() {
			s.metrics.introCompleted(context.Background())
			s.visits.recordEvent(eventIntroCompleted, sid)
		},
	}
	a := intro.New(s.clock,
		intro.WithTiming(s.timing),
		intro.WithReducedMotion(prefersReducedMotion(c)),
		intro.WithPlayedFlag(flag),
		intro.WithObserver(func(f intro.Frame) { offerFrame(frames, f) }),
	)
	defer a.Dispose()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	a.Start(s.script)

	for {
		select {
		case <-ctx.Done():
			log.Debug("intro stream closed by client")
			return
		case f := <-frames:
			c.SSEvent("frame", f)
			c.Writer.Flush()
			if f.Finished {
				return
			}
		}
	}
}
