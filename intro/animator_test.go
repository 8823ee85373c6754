package intro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckwame-jpg/portfolio/clock"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type memFlag struct {
	played bool
	marks  int
}

func (f *memFlag) Played() bool { return f.played }
func (f *memFlag) MarkPlayed() {
	f.played = true
	f.marks++
}

func whoami() Script {
	return Script{
		{Kind: KindCommand, Text: "whoami"},
		{Kind: KindResult, Text: "Chris"},
	}
}

// whoami under DefaultTiming: 600 pause, 6x50 command, 300 gap, 5x35 result, 400 gap.
const whoamiDuration = 1775 * time.Millisecond

func TestAnimatorFullReveal(t *testing.T) {
	clk := clock.NewFake(epoch)
	flag := &memFlag{}
	a := New(clk, WithPlayedFlag(flag))

	a.Start(whoami())
	clk.Advance(whoamiDuration)

	f := a.Frame()
	assert.True(t, f.Finished)
	assert.True(t, a.Finished())
	assert.Equal(t, []RevealedLine{
		{Kind: KindCommand, Text: "whoami", Done: true},
		{Kind: KindResult, Text: "Chris", Done: true},
	}, f.Lines)
	assert.Equal(t, 1, flag.marks)
	assert.Equal(t, 0, clk.Pending())
}

func TestAnimatorFinishesExactlyAfterLastGap(t *testing.T) {
	clk := clock.NewFake(epoch)
	a := New(clk)
	a.Start(whoami())

	clk.Advance(whoamiDuration - time.Millisecond)
	f := a.Frame()
	require.False(t, f.Finished)
	require.Len(t, f.Lines, 2)
	assert.True(t, f.Lines[1].Done)

	clk.Advance(time.Millisecond)
	assert.True(t, a.Finished())
}

func TestAnimatorRevealsOneCharacterAtATime(t *testing.T) {
	clk := clock.NewFake(epoch)
	a := New(clk)
	a.Start(whoami())

	assert.Empty(t, a.Frame().Lines)

	clk.Advance(600 * time.Millisecond)
	f := a.Frame()
	require.Len(t, f.Lines, 1)
	assert.Equal(t, RevealedLine{Kind: KindCommand}, f.Lines[0])

	clk.Advance(50 * time.Millisecond)
	assert.Equal(t, "w", a.Frame().Lines[0].Text)

	clk.Advance(49 * time.Millisecond)
	assert.Equal(t, "w", a.Frame().Lines[0].Text)

	clk.Advance(time.Millisecond)
	assert.Equal(t, "wh", a.Frame().Lines[0].Text)
	assert.False(t, a.Frame().Lines[0].Done)
}

func TestAnimatorAtMostOneLineIncomplete(t *testing.T) {
	clk := clock.NewFake(epoch)
	var frames []Frame
	a := New(clk, WithObserver(func(f Frame) { frames = append(frames, f) }))
	a.Start(whoami())
	clk.Advance(whoamiDuration)

	require.NotEmpty(t, frames)
	for _, f := range frames {
		incomplete := 0
		for i, l := range f.Lines {
			if !l.Done {
				incomplete++
				assert.Equal(t, len(f.Lines)-1, i, "only the last line may be revealing")
			}
		}
		assert.LessOrEqual(t, incomplete, 1)
	}
	assert.True(t, frames[len(frames)-1].Finished)
}

func TestAnimatorMultibyteText(t *testing.T) {
	clk := clock.NewFake(epoch)
	a := New(clk)
	a.Start(Script{{Kind: KindResult, Text: "héllo"}})

	clk.Advance(600*time.Millisecond + 2*35*time.Millisecond)
	assert.Equal(t, "hé", a.Frame().Lines[0].Text)
}

func TestAnimatorEmptyLine(t *testing.T) {
	clk := clock.NewFake(epoch)
	a := New(clk)
	a.Start(Script{{Kind: KindCommand, Text: ""}, {Kind: KindResult, Text: "x"}})

	clk.Advance(600 * time.Millisecond)
	f := a.Frame()
	require.Len(t, f.Lines, 1)
	assert.True(t, f.Lines[0].Done)

	clk.Advance(300*time.Millisecond + 35*time.Millisecond + 400*time.Millisecond)
	assert.True(t, a.Finished())
}

func TestAnimatorTaglinePause(t *testing.T) {
	clk := clock.NewFake(epoch)
	a := New(clk)
	a.Start(Script{{Kind: KindTagline, Text: "hi"}})

	clk.Advance(600*time.Millisecond + 199*time.Millisecond)
	assert.Empty(t, a.Frame().Lines)

	clk.Advance(time.Millisecond)
	assert.Len(t, a.Frame().Lines, 1)

	clk.Advance(40 * time.Millisecond)
	assert.True(t, a.Finished())
}

func TestAnimatorSkipPaths(t *testing.T) {
	tests := []struct {
		name string
		opts func(*memFlag) []Option
	}{
		{
			name: "reduced motion",
			opts: func(*memFlag) []Option { return []Option{WithReducedMotion(true)} },
		},
		{
			name: "already played",
			opts: func(f *memFlag) []Option {
				f.played = true
				return []Option{WithPlayedFlag(f)}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewFake(epoch)
			flag := &memFlag{}
			a := New(clk, tt.opts(flag)...)

			a.Start(whoami())

			f := a.Frame()
			assert.True(t, f.Finished)
			assert.Equal(t, []RevealedLine{
				{Kind: KindCommand, Text: "whoami", Done: true},
				{Kind: KindResult, Text: "Chris", Done: true},
			}, f.Lines)
			assert.Equal(t, epoch, clk.Now())
			assert.Equal(t, 0, clk.Pending())
			assert.Equal(t, 0, flag.marks)
		})
	}
}

func TestAnimatorStartIsLatched(t *testing.T) {
	clk := clock.NewFake(epoch)
	a := New(clk)
	a.Start(whoami())
	clk.Advance(700 * time.Millisecond)
	before := a.Frame()

	a.Start(Script{{Kind: KindTagline, Text: "again"}})
	assert.Equal(t, before, a.Frame())

	clk.Advance(whoamiDuration)
	f := a.Frame()
	require.Len(t, f.Lines, 2)
	assert.Equal(t, "Chris", f.Lines[1].Text)
}

func TestAnimatorDisposeStopsMutations(t *testing.T) {
	clk := clock.NewFake(epoch)
	flag := &memFlag{}
	notified := 0
	a := New(clk, WithPlayedFlag(flag), WithObserver(func(Frame) { notified++ }))
	a.Start(whoami())

	clk.Advance(700 * time.Millisecond)
	require.Equal(t, "wh", a.Frame().Lines[0].Text)

	a.Dispose()
	snapshot := a.Frame()
	count := notified
	assert.Equal(t, 0, clk.Pending())

	clk.Advance(10 * time.Second)
	assert.Equal(t, snapshot, a.Frame())
	assert.Equal(t, count, notified)
	assert.False(t, a.Finished())
	assert.Equal(t, 0, flag.marks)
}

func TestAnimatorDisposeRacingCallback(t *testing.T) {
	clk := clock.NewFake(epoch)
	a := New(clk)
	a.Start(whoami())

	// Dispose lands on the same instant as the first reveal and is ordered before it.
	clk.AfterFunc(650*time.Millisecond, a.Dispose)
	clk.Advance(time.Second)

	f := a.Frame()
	require.Len(t, f.Lines, 1)
	assert.Equal(t, "", f.Lines[0].Text)
	assert.Equal(t, 0, clk.Pending())
}

func TestAnimatorCursorBlink(t *testing.T) {
	clk := clock.NewFake(epoch)
	a := New(clk)
	a.Start(whoami())

	assert.True(t, a.CursorVisible())
	clk.Advance(499 * time.Millisecond)
	assert.True(t, a.CursorVisible())
	clk.Advance(time.Millisecond)
	assert.False(t, a.CursorVisible())
	clk.Advance(500 * time.Millisecond)
	assert.True(t, a.CursorVisible())

	clk.Advance(whoamiDuration)
	require.True(t, a.Finished())
	settled := a.CursorVisible()
	clk.Advance(5 * time.Second)
	assert.Equal(t, settled, a.CursorVisible())
	assert.Equal(t, 0, clk.Pending())
}

func TestAnimatorCustomTiming(t *testing.T) {
	clk := clock.NewFake(epoch)
	timing := Timing{
		Kinds: map[Kind]KindTiming{
			KindCommand: {InterChar: 10 * time.Millisecond},
		},
	}
	a := New(clk, WithTiming(timing))
	a.Start(Script{{Kind: KindCommand, Text: "ab"}})

	clk.Advance(20 * time.Millisecond)
	assert.True(t, a.Finished())
}

func TestAnimatorZeroDelaysFinishSynchronously(t *testing.T) {
	clk := clock.NewFake(epoch)
	a := New(clk, WithTiming(Timing{Kinds: map[Kind]KindTiming{
		KindCommand: {}, KindResult: {}, KindTagline: {},
	}}))

	a.Start(whoami())
	assert.True(t, a.Finished())
	assert.Equal(t, "Chris", a.Frame().Lines[1].Text)
}
