// Package components provides the widgets the monitor is built from.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/tui/styles"
)

// RenderModeBadge renders the global mode with icon and color.
func RenderModeBadge(styleSet styles.Styles, mode gamestate.Mode) string {
	icon, label, style := modeDescriptor(styleSet, mode)
	return style.Render(fmt.Sprintf("%s %s", icon, label))
}

func modeDescriptor(styleSet styles.Styles, mode gamestate.Mode) (string, string, lipgloss.Style) {
	switch mode {
	case gamestate.Normal:
		return ">", "Normal", styleSet.ModeNormal
	case gamestate.Cutscene:
		return "#", "Cutscene", styleSet.ModeCutscene
	case gamestate.DialogOptions:
		return "?", "Dialogue", styleSet.ModeDialog
	case gamestate.Paused:
		return "||", "Paused", styleSet.ModePaused
	default:
		return "-", "Unknown", styleSet.Muted
	}
}
