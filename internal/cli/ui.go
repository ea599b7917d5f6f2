package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/opencode-ai/cutscene/internal/tui"
)

// launchTUI hands a running session to the terminal monitor.
func launchTUI(sess *session, lines *tui.LineBuffer, title, theme string) error {
	if IsNonInteractive() {
		return fmt.Errorf("the monitor needs an interactive terminal; run without --tui")
	}
	return tui.Run(tui.Config{
		Engine: tui.SceneEngine{Scene: sess.scene, Scheduler: sess.sched},
		Lines:  lines,
		Title:  title,
		Theme:  theme,
	})
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
