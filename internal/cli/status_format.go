package cli

import (
	"fmt"
	"os"

	"github.com/opencode-ai/cutscene/internal/actionlist"
	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/models"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

func colorEnabled() bool {
	if noColor || jsonOutput {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return hasTTY()
}

func colorize(text, color string) string {
	if !colorEnabled() || color == "" {
		return text
	}
	return color + text + colorReset
}

func formatMode(mode gamestate.Mode) string {
	return colorize(mode.String(), modeColor(mode))
}

func modeColor(mode gamestate.Mode) string {
	switch mode {
	case gamestate.Normal:
		return colorGreen
	case gamestate.Cutscene:
		return colorMagenta
	case gamestate.DialogOptions:
		return colorCyan
	case gamestate.Paused:
		return colorYellow
	default:
		return ""
	}
}

func formatKind(kind actionlist.Kind) string {
	if kind == actionlist.Blocking {
		return colorize(kind.String(), colorMagenta)
	}
	return kind.String()
}

func formatSaveKind(kind models.SaveKind) string {
	if kind == models.SaveKindAuto {
		return colorize(string(kind), colorCyan)
	}
	return string(kind)
}

func formatEventType(t models.EventType) string {
	switch t {
	case models.EventTypeAutosaveFailed, models.EventTypeError:
		return colorize(string(t), colorRed)
	case models.EventTypeAutosaveSkipped, models.EventTypeSequenceKilled, models.EventTypeWarning:
		return colorize(string(t), colorYellow)
	default:
		return string(t)
	}
}

func formatCount(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
