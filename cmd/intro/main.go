// Command intro plays the site's terminal intro in a real terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/ckwame-jpg/portfolio/clock"
	"github.com/ckwame-jpg/portfolio/intro"
)

var (
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7dd3fc")).Bold(true)
	resultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f5f5f5"))
	taglineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a1a1aa")).Italic(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
)

func main() {
	reduced := flag.Bool("reduced", false, "print the whole script without animating")
	scriptPath := flag.String("script", "", "TOML intro script (default: the embedded site intro)")
	flag.Parse()

	script, timing := intro.DefaultScript()
	if *scriptPath != "" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "intro:", err)
			os.Exit(1)
		}
		script, timing, err = intro.LoadScript(f)
		f.Close()
		if err != nil {
			fmt.Fprintln(os.Stderr, "intro:", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	play(ctx, os.Stdout, script, timing, *reduced)
}

func play(ctx context.Context, w io.Writer, script intro.Script, timing intro.Timing, reduced bool) {
	frames := make(chan intro.Frame, 1)
	a := intro.New(clock.Real(),
		intro.WithTiming(timing),
		intro.WithReducedMotion(reduced),
		intro.WithObserver(func(f intro.Frame) {
			select {
			case <-frames:
			default:
			}
			frames <- f
		}),
	)
	defer a.Dispose()
	a.Start(script)

	drawn := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(w)
			return
		case f := <-frames:
			drawn = redraw(w, f, drawn)
			if f.Finished {
				return
			}
		}
	}
}

// redraw replaces the previously drawn rows with frame f and returns how
// many rows it drew.
func redraw(w io.Writer, f intro.Frame, drawn int) int {
	if drawn > 0 {
		fmt.Fprintf(w, "\x1b[%dF\x1b[J", drawn)
	}
	out := render(f)
	fmt.Fprint(w, out)
	return strings.Count(out, "\n")
}

func render(f intro.Frame) string {
	var b strings.Builder
	for i, l := range f.Lines {
		b.WriteString(styleFor(l.Kind).Render(l.Text))
		if i == len(f.Lines)-1 && !f.Finished && f.Cursor {
			b.WriteString(cursorStyle.Render("▋"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func styleFor(k intro.Kind) lipgloss.Style {
	switch k {
	case intro.KindCommand:
		return commandStyle
	case intro.KindTagline:
		return taglineStyle
	default:
		return resultStyle
	}
}
