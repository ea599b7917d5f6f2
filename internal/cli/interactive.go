package cli

import (
	"io"
	"os"
	"strconv"
	"strings"
)

// nonInteractiveEnv turns off keyboard prompts for scripted playthroughs.
const nonInteractiveEnv = "CUTSCENE_NON_INTERACTIVE"

// IsNonInteractive reports whether conversation menus must be answered from
// --choice flags alone.
func IsNonInteractive() bool {
	if nonInteractive || envSwitch(nonInteractiveEnv) {
		return true
	}
	return !hasTTY()
}

// IsInteractive reports whether the player can be prompted at the keyboard.
func IsInteractive() bool {
	return !IsNonInteractive()
}

// choiceInput returns the reader menu picks are typed on, or nil when picks
// come only from --choice. JSON output never prompts.
func choiceInput(in io.Reader) io.Reader {
	if in == nil || IsJSONOutput() || !IsInteractive() {
		return nil
	}
	return in
}

// envSwitch reads an on/off environment variable. An unset variable or a
// false boolean ("0", "false") is off; any other value, empty included, is on.
func envSwitch(name string) bool {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return false
	}
	on, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err != nil || on
}
