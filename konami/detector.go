// Package konami detects an ordered key sequence in a stream of key presses
// and raises a short-lived "triggered" pulse when it completes.
package konami

import (
	"strings"
	"sync"
	"time"

	"github.com/ckwame-jpg/portfolio/clock"
)

// DefaultPulse is how long Triggered stays true after a match.
const DefaultPulse = 3 * time.Second

// Code is the classic sequence, spelled as browser KeyboardEvent.key values.
var Code = []string{
	"ArrowUp", "ArrowUp", "ArrowDown", "ArrowDown",
	"ArrowLeft", "ArrowRight", "ArrowLeft", "ArrowRight",
	"b", "a",
}

// ParsePattern splits a space-separated key list, e.g. "ArrowUp ArrowUp b a".
func ParsePattern(s string) []string {
	return strings.Fields(s)
}

// State is a detector snapshot.
type State struct {
	Progress  int  `json:"progress"`
	Triggered bool `json:"triggered"`
}

// Option configures a Detector.
type Option func(*options)

type options struct {
	pulse    time.Duration
	observer func(State)
}

// WithPulse sets how long Triggered stays true after a match.
func WithPulse(d time.Duration) Option {
	return func(o *options) {
		o.pulse = d
	}
}

// WithObserver registers fn to receive the state after every change.
// fn runs with the detector locked and must not call back into it.
func WithObserver(fn func(State)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// Detector matches tokens against a fixed pattern.
//
// On a mismatch, progress restarts at 1 when the offending token is itself
// the first token of the pattern, and at 0 otherwise. Only that single token
// is reconsidered, so patterns whose prefix repeats (e.g. A A B fed A A A B)
// can miss a match that a full failure function would find.
type Detector[T comparable] struct {
	clock   clock.Clock
	pattern []T
	opts    options

	mu        sync.Mutex
	progress  int
	triggered bool
	disposed  bool
	revert    clock.Timer
	gen       uint64
}

// New creates a detector for pattern. An empty pattern never triggers.
func New[T comparable](clk clock.Clock, pattern []T, opts ...Option) *Detector[T] {
	o := options{pulse: DefaultPulse}
	for _, opt := range opts {
		opt(&o)
	}
	return &Detector[T]{
		clock:   clk,
		pattern: append([]T(nil), pattern...),
		opts:    o,
	}
}

// OnToken feeds one token and reports whether it completed the pattern.
func (d *Detector[T]) OnToken(tok T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed || len(d.pattern) == 0 {
		return false
	}

	before := d.progress
	if tok == d.pattern[d.progress] {
		d.progress++
	} else if tok == d.pattern[0] {
		d.progress = 1
	} else {
		d.progress = 0
	}

	if d.progress == len(d.pattern) {
		d.progress = 0
		d.trigger()
		return true
	}
	if d.progress != before {
		d.notify()
	}
	return false
}

// trigger raises the pulse and replaces any pending revert.
// Callers hold d.mu.
func (d *Detector[T]) trigger() {
	d.triggered = true
	if d.revert != nil {
		d.revert.Stop()
	}
	d.gen++
	gen := d.gen
	d.revert = d.clock.AfterFunc(d.opts.pulse, func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		if d.disposed || d.gen != gen {
			return
		}
		d.revert = nil
		d.triggered = false
		d.notify()
	})
	d.notify()
}

// State returns the current progress and pulse.
func (d *Detector[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state()
}

// Progress returns how many pattern tokens have been matched so far.
func (d *Detector[T]) Progress() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progress
}

// Triggered reports whether the pulse is active.
func (d *Detector[T]) Triggered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.triggered
}

// Len returns the pattern length.
func (d *Detector[T]) Len() int {
	return len(d.pattern)
}

// Dispose cancels the pending revert. Later tokens are ignored.
func (d *Detector[T]) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.disposed = true
	d.gen++
	if d.revert != nil {
		d.revert.Stop()
		d.revert = nil
	}
}

func (d *Detector[T]) state() State {
	return State{Progress: d.progress, Triggered: d.triggered}
}

func (d *Detector[T]) notify() {
	if d.opts.observer != nil {
		d.opts.observer(d.state())
	}
}
