package cli

import (
	"fmt"
	"io"
	"os"
	"time"
)

// progressStep prints "label... done (12ms)" on stderr around slow setup.
// A nil step is silent.
type progressStep struct {
	out     io.Writer
	started time.Time
}

func startProgress(label string) *progressStep {
	if !progressEnabled() {
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s... ", label)
	return &progressStep{out: os.Stderr, started: time.Now()}
}

// Finish reports err, or success when err is nil, and passes err through.
func (p *progressStep) Finish(err error) error {
	if p == nil {
		return err
	}
	if err != nil {
		fmt.Fprintln(p.out, colorize("failed", colorRed))
		return err
	}
	fmt.Fprintf(p.out, "done (%s)\n", formatDuration(time.Since(p.started)))
	return nil
}

func progressEnabled() bool {
	if IsJSONOutput() || IsNonInteractive() {
		return false
	}
	_, quiet := os.LookupEnv("CUTSCENE_NO_PROGRESS")
	return !quiet
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
