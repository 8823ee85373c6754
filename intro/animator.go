// Package intro plays the terminal-style intro: a script of lines revealed
// one character at a time, with per-kind pacing and a blinking cursor.
//
// An Animator is a small timer-driven state machine. Every pause is a timer
// armed on the injected clock; every timer callback takes the lock and checks
// the disposed flag before touching state, so a callback racing Dispose is a
// no-op.
package intro

import (
	"sync"
	"time"

	"github.com/ckwame-jpg/portfolio/clock"
)

// PlayedFlag is the per-session record that the intro has already played.
type PlayedFlag interface {
	Played() bool
	MarkPlayed()
}

// RevealedLine is a line as currently shown: Text is a prefix of the
// scripted text until Done.
type RevealedLine struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Frame is a snapshot of the animation for renderers.
type Frame struct {
	Lines    []RevealedLine `json:"lines"`
	Finished bool           `json:"finished"`
	Cursor   bool           `json:"cursor"`
}

// Option configures an Animator.
type Option func(*Animator)

// WithTiming replaces DefaultTiming.
func WithTiming(t Timing) Option {
	return func(a *Animator) {
		a.timing = t
	}
}

// WithReducedMotion skips the staged reveal when reduced is true.
func WithReducedMotion(reduced bool) Option {
	return func(a *Animator) {
		a.reduced = reduced
	}
}

// WithPlayedFlag sets the session flag consulted by Start and set on completion.
func WithPlayedFlag(f PlayedFlag) Option {
	return func(a *Animator) {
		a.played = f
	}
}

// WithObserver registers fn to receive a Frame after every state change.
// fn runs with the animator locked and must not call back into it.
func WithObserver(fn func(Frame)) Option {
	return func(a *Animator) {
		a.observer = fn
	}
}

type stage int

const (
	stageIdle stage = iota
	stageNextLine
	stageAppend
	stageReveal
	stageComplete
	stageDone
)

// Animator reveals a Script over time. The zero value is not usable; use New.
type Animator struct {
	clock    clock.Clock
	timing   Timing
	reduced  bool
	played   PlayedFlag
	observer func(Frame)

	mu       sync.Mutex
	script   Script
	started  bool
	disposed bool
	finished bool
	cursor   bool
	lines    []RevealedLine

	stage stage
	line  int
	runes []rune
	shown int

	step  clock.Timer
	blink clock.Timer
}

// New creates an Animator on the given clock.
func New(clk clock.Clock, opts ...Option) *Animator {
	a := &Animator{
		clock:  clk,
		timing: DefaultTiming(),
		cursor: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start begins playing script. With reduced motion, or when the played flag
// is already set, every line is revealed immediately. Start runs at most
// once per Animator; later calls do nothing.
func (a *Animator) Start(script Script) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started || a.disposed {
		return
	}
	a.started = true
	a.script = append(Script(nil), script...)

	if a.reduced || (a.played != nil && a.played.Played()) {
		a.lines = make([]RevealedLine, len(a.script))
		for i, l := range a.script {
			a.lines[i] = RevealedLine{Kind: l.Kind, Text: l.Text, Done: true}
		}
		a.finished = true
		a.stage = stageDone
		a.notify()
		return
	}

	a.stage = stageNextLine
	a.scheduleBlink()
	a.notify()
	a.wait(a.timing.InitialPause)
}

// Dispose stops the animation. Pending timers are cancelled and no state
// changes after Dispose returns.
func (a *Animator) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.disposed = true
	stopTimer(&a.step)
	stopTimer(&a.blink)
}

// Frame returns a snapshot of the current state.
func (a *Animator) Frame() Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frame()
}

// Finished reports whether every line is fully revealed.
func (a *Animator) Finished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finished
}

// CursorVisible reports the blink phase. It stops changing once finished.
func (a *Animator) CursorVisible() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor
}

// wait arms the step timer, or runs the next step inline when d is zero.
// Callers hold a.mu.
func (a *Animator) wait(d time.Duration) {
	if d <= 0 {
		a.advance()
		return
	}
	a.step = a.clock.AfterFunc(d, a.resume)
}

func (a *Animator) resume() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return
	}
	a.step = nil
	a.advance()
}

// advance performs the current stage and waits for the next one.
// Callers hold a.mu.
func (a *Animator) advance() {
	switch a.stage {
	case stageNextLine:
		if a.line >= len(a.script) {
			a.finish()
			return
		}
		a.stage = stageAppend
		a.wait(a.timing.For(a.script[a.line].Kind).PreLine)

	case stageAppend:
		l := a.script[a.line]
		a.lines = append(a.lines, RevealedLine{Kind: l.Kind})
		a.runes = []rune(l.Text)
		a.shown = 0
		a.notify()
		if len(a.runes) == 0 {
			a.stage = stageComplete
			a.advance()
			return
		}
		a.stage = stageReveal
		a.wait(a.timing.For(l.Kind).InterChar)

	case stageReveal:
		a.shown++
		a.lines[len(a.lines)-1].Text = string(a.runes[:a.shown])
		a.notify()
		if a.shown < len(a.runes) {
			a.wait(a.timing.For(a.script[a.line].Kind).InterChar)
			return
		}
		a.stage = stageComplete
		a.advance()

	case stageComplete:
		a.lines[len(a.lines)-1].Done = true
		a.notify()
		post := a.timing.For(a.script[a.line].Kind).PostLine
		a.line++
		a.stage = stageNextLine
		a.wait(post)
	}
}

// finish marks the animation complete and records it for the session. The
// flag is written before observers see the finished frame.
// Callers hold a.mu.
func (a *Animator) finish() {
	a.stage = stageDone
	a.finished = true
	stopTimer(&a.blink)
	if a.played != nil {
		a.played.MarkPlayed()
	}
	a.notify()
}

func (a *Animator) scheduleBlink() {
	if a.timing.BlinkInterval <= 0 {
		return
	}
	a.blink = a.clock.AfterFunc(a.timing.BlinkInterval, a.toggleCursor)
}

func (a *Animator) toggleCursor() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed || a.finished {
		return
	}
	a.cursor = !a.cursor
	a.notify()
	a.scheduleBlink()
}

func (a *Animator) notify() {
	if a.observer != nil {
		a.observer(a.frame())
	}
}

func (a *Animator) frame() Frame {
	lines := make([]RevealedLine, len(a.lines))
	copy(lines, a.lines)
	return Frame{Lines: lines, Finished: a.finished, Cursor: a.cursor}
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
