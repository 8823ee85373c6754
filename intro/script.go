package intro

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Kind tags a scripted line. It selects the line's pacing and the way a
// renderer styles it.
type Kind string

const (
	KindCommand Kind = "command"
	KindResult  Kind = "result"
	KindTagline Kind = "tagline"
)

func (k Kind) valid() bool {
	switch k {
	case KindCommand, KindResult, KindTagline:
		return true
	}
	return false
}

// Line is one scripted line and the full text it reveals.
type Line struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Script is the ordered list of lines played by an Animator.
type Script []Line

// KindTiming is the pacing applied to every line of one kind.
type KindTiming struct {
	// PreLine is waited before the line appears.
	PreLine time.Duration
	// InterChar is waited before each character is revealed.
	InterChar time.Duration
	// PostLine is waited after the line is complete.
	PostLine time.Duration
}

// Timing configures an Animator's pacing.
type Timing struct {
	InitialPause  time.Duration
	BlinkInterval time.Duration
	Kinds         map[Kind]KindTiming
}

// DefaultTiming returns the pacing of the site intro.
func DefaultTiming() Timing {
	return Timing{
		InitialPause:  600 * time.Millisecond,
		BlinkInterval: 500 * time.Millisecond,
		Kinds: map[Kind]KindTiming{
			KindCommand: {InterChar: 50 * time.Millisecond, PostLine: 300 * time.Millisecond},
			KindResult:  {InterChar: 35 * time.Millisecond, PostLine: 400 * time.Millisecond},
			KindTagline: {PreLine: 200 * time.Millisecond, InterChar: 20 * time.Millisecond},
		},
	}
}

// For returns the pacing of kind k. Kinds without an entry use the result pacing.
func (t Timing) For(k Kind) KindTiming {
	if kt, ok := t.Kinds[k]; ok {
		return kt
	}
	if kt, ok := t.Kinds[KindResult]; ok {
		return kt
	}
	return DefaultTiming().Kinds[KindResult]
}

//go:embed default.toml
var defaultScript []byte

type scriptFile struct {
	InitialPauseMS  *int                      `toml:"initial_pause_ms"`
	BlinkIntervalMS *int                      `toml:"blink_interval_ms"`
	Timing          map[string]kindTimingFile `toml:"timing"`
	Lines           []lineFile                `toml:"line"`
}

type kindTimingFile struct {
	PreLineMS   *int `toml:"pre_line_ms"`
	InterCharMS *int `toml:"inter_char_ms"`
	PostLineMS  *int `toml:"post_line_ms"`
}

type lineFile struct {
	Kind string `toml:"kind"`
	Text string `toml:"text"`
}

// LoadScript decodes a TOML script file. Timing values missing from the file
// keep their DefaultTiming value.
func LoadScript(r io.Reader) (Script, Timing, error) {
	var f scriptFile
	if err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, Timing{}, fmt.Errorf("decode intro script: %w", err)
	}

	timing := DefaultTiming()
	setMS(&timing.InitialPause, f.InitialPauseMS)
	setMS(&timing.BlinkInterval, f.BlinkIntervalMS)
	for name, kf := range f.Timing {
		k := Kind(name)
		if !k.valid() {
			return nil, Timing{}, fmt.Errorf("intro timing: unknown kind %q", name)
		}
		kt := timing.Kinds[k]
		setMS(&kt.PreLine, kf.PreLineMS)
		setMS(&kt.InterChar, kf.InterCharMS)
		setMS(&kt.PostLine, kf.PostLineMS)
		timing.Kinds[k] = kt
	}

	script := make(Script, 0, len(f.Lines))
	for i, l := range f.Lines {
		k := Kind(l.Kind)
		if !k.valid() {
			return nil, Timing{}, fmt.Errorf("intro line %d: unknown kind %q", i, l.Kind)
		}
		script = append(script, Line{Kind: k, Text: l.Text})
	}
	if len(script) == 0 {
		return nil, Timing{}, fmt.Errorf("intro script has no lines")
	}
	return script, timing, nil
}

// DefaultScript returns the embedded site intro.
func DefaultScript() (Script, Timing) {
	script, timing, err := LoadScript(bytes.NewReader(defaultScript))
	if err != nil {
		panic("intro: embedded default script: " + err.Error())
	}
	return script, timing
}

func setMS(dst *time.Duration, ms *int) {
	if ms == nil || *ms < 0 {
		return
	}
	*dst = time.Duration(*ms) * time.Millisecond
}
