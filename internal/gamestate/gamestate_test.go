package gamestate

import "testing"

func TestCutsceneTransitions(t *testing.T) {
	c := NewController()

	c.EnterCutscene()
	if got := c.Current(); got != Cutscene {
		t.Fatalf("expected cutscene, got %s", got)
	}

	c.ExitCutscene()
	if got := c.Current(); got != Normal {
		t.Fatalf("expected normal, got %s", got)
	}
}

func TestExitCutsceneLeavesOtherModes(t *testing.T) {
	c := NewController()
	c.EnterDialogOptions()

	c.ExitCutscene()
	if got := c.Current(); got != DialogOptions {
		t.Fatalf("expected dialog_options to survive ExitCutscene, got %s", got)
	}
}

func TestPauseRestoresPreviousMode(t *testing.T) {
	c := NewController()
	c.EnterCutscene()
	c.Pause()
	if got := c.Current(); got != Paused {
		t.Fatalf("expected paused, got %s", got)
	}

	c.Unpause()
	if got := c.Current(); got != Cutscene {
		t.Fatalf("expected cutscene after unpause, got %s", got)
	}
}

func TestCutsceneChangesWhilePaused(t *testing.T) {
	c := NewController()
	c.Pause()

	c.EnterCutscene()
	if got := c.Current(); got != Paused {
		t.Fatalf("EnterCutscene must not override pause, got %s", got)
	}
	c.Unpause()
	if got := c.Current(); got != Cutscene {
		t.Fatalf("expected cutscene restored, got %s", got)
	}

	c.Pause()
	c.ExitCutscene()
	c.Unpause()
	if got := c.Current(); got != Normal {
		t.Fatalf("expected normal restored, got %s", got)
	}
}

func TestSubscribersSeeChanges(t *testing.T) {
	c := NewController()
	var changes []Change
	c.Subscribe(func(ch Change) { changes = append(changes, ch) })

	c.EnterCutscene()
	c.EnterCutscene()
	c.ExitCutscene()

	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Previous != Normal || changes[0].Current != Cutscene {
		t.Fatalf("unexpected first change: %+v", changes[0])
	}
	if changes[1].Current != Normal {
		t.Fatalf("unexpected second change: %+v", changes[1])
	}
}
