package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckwame-jpg/portfolio/intro"
	"github.com/ckwame-jpg/portfolio/session"
)

// frames decodes the "frame" events of an SSE body.
func frames(t *testing.T, body string) []intro.Frame {
	t.Helper()
	var out []intro.Frame
	for _, event := range strings.Split(body, "\n\n") {
		if !strings.Contains(event, "event:frame") {
			continue
		}
		for _, line := range strings.Split(event, "\n") {
			if data, ok := strings.CutPrefix(line, "data:"); ok {
				var f intro.Frame
				require.NoError(t, json.Unmarshal([]byte(data), &f))
				out = append(out, f)
			}
		}
	}
	return out
}

func lastFrame(t *testing.T, body string) intro.Frame {
	t.Helper()
	fs := frames(t, body)
	require.NotEmpty(t, fs, body)
	return fs[len(fs)-1]
}

// stream serves req in the background and advances the fake clock until the
// handler returns.
func (ts *testSite) stream(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.handler.ServeHTTP(w, req)
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-done:
			return w
		case <-deadline:
			t.Fatal("intro stream did not finish")
		case <-time.After(time.Millisecond):
			ts.clock.Advance(25 * time.Millisecond)
		}
	}
}

func TestIntroStreamReducedMotion(t *testing.T) {
	ts := newTestSite(t)

	for name, req := range map[string]*http.Request{
		"query": httptest.NewRequest(http.MethodGet, "/intro/stream?reduced=1", nil),
		"client hint": func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/intro/stream", nil)
			r.Header.Set("Sec-CH-Prefers-Reduced-Motion", "reduce")
			return r
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ts.handler.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
			fs := frames(t, w.Body.String())
			require.Len(t, fs, 1, "skip path sends only the complete frame")
			assert.True(t, fs[0].Finished)
			require.Len(t, fs[0].Lines, 5)
			assert.Equal(t, "Chris Prempeh", fs[0].Lines[1].Text)
			assert.Equal(t, 0, ts.clock.Pending())
		})
	}
}

func TestIntroStreamPlaysOncePerSession(t *testing.T) {
	ts := newTestSite(t)
	sid := &http.Cookie{Name: session.CookieName, Value: session.NewID()}

	req := httptest.NewRequest(http.MethodGet, "/intro/stream", nil)
	req.AddCookie(sid)
	w := ts.stream(t, req)

	fs := frames(t, w.Body.String())
	require.Greater(t, len(fs), 1, "the animated path streams progress")
	assert.False(t, fs[0].Finished)
	last := fs[len(fs)-1]
	assert.True(t, last.Finished)
	assert.Equal(t, "Technical Manager", last.Lines[3].Text)
	for _, l := range last.Lines {
		assert.True(t, l.Done)
	}

	played, err := ts.srv.sessions.IntroPlayed(context.Background(), sid.Value)
	require.NoError(t, err)
	assert.True(t, played)

	// Second visit in the same browser session skips straight to the end.
	w = ts.get("/intro/stream", sid)
	fs = frames(t, w.Body.String())
	require.Len(t, fs, 1)
	assert.True(t, fs[0].Finished)

	ts.srv.visits.wait()
	stats, err := ts.srv.visits.stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.IntroCompletions)
}

func TestIntroStreamClientGone(t *testing.T) {
	ts := newTestSite(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/intro/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.handler.ServeHTTP(w, req)
	}()

	require.Eventually(t, func() bool { return ts.clock.Pending() > 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return")
	}
	assert.Equal(t, 0, ts.clock.Pending(), "animator disposed")
	for _, f := range frames(t, w.Body.String()) {
		assert.False(t, f.Finished)
	}
}

type failingStore struct{ session.Store }

func (failingStore) IntroPlayed(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}

func (failingStore) MarkIntroPlayed(context.Context, string) error {
	return errors.New("store down")
}

func TestIntroStreamStoreErrors(t *testing.T) {
	ts := newTestSite(t, func(_ *config, d *deps) {
		d.sessions = failingStore{session.NewMemoryStore(d.clock)}
	})

	w := ts.stream(t, httptest.NewRequest(http.MethodGet, "/intro/stream", nil))
	assert.True(t, lastFrame(t, w.Body.String()).Finished, "store errors never break the animation")

	ts.srv.visits.wait()
	stats, err := ts.srv.visits.stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.IntroCompletions)
}

func TestOfferFrameKeepsLatest(t *testing.T) {
	ch := make(chan intro.Frame, 1)
	offerFrame(ch, intro.Frame{Cursor: true})
	offerFrame(ch, intro.Frame{Finished: true})

	f := <-ch
	assert.True(t, f.Finished)
	select {
	case <-ch:
		t.Fatal("mailbox holds one frame")
	default:
	}
}
