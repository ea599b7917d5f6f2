package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/cutscene/internal/db"
	"github.com/opencode-ai/cutscene/internal/dialogue"
	"github.com/opencode-ai/cutscene/internal/tui"
	"github.com/opencode-ai/cutscene/internal/variables"
)

var (
	runUseTUI      bool
	runChoices     []int
	runMaxDuration time.Duration
	runSet         []string
	runSpeed       float64
	runNoSave      bool
	runLoad        string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runUseTUI, "tui", false, "watch the run in the terminal monitor")
	runCmd.Flags().IntSliceVar(&runChoices, "choice", nil, "answer dialogue menus in order (1-based)")
	runCmd.Flags().DurationVar(&runMaxDuration, "max-duration", 10*time.Minute, "stop after this much game time (0 for no limit)")
	runCmd.Flags().StringSliceVar(&runSet, "set", nil, "set a variable before playing (key=value, repeatable)")
	runCmd.Flags().Float64Var(&runSpeed, "speed", 0, "game time multiplier (default from engine.time_scale)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "do not write autosaves or the event log")
	runCmd.Flags().StringVar(&runLoad, "load", "", "restore variables from a save (id, id prefix or latest) before playing")
}

var runCmd = &cobra.Command{
	Use:   "run <sequence>",
	Short: "Play a sequence",
	Long: `Play a sequence until nothing is left running.

Dialogue menus are answered from --choice in order. When the choices run out
the menu is prompted for on an interactive terminal, and closed otherwise.`,
	Example: `  cutscene run intro --choice 1
  cutscene run intro --set gold=3 --speed 10
  cutscene run chapter-end --tui`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		cfg := currentConfig()

		step := startProgress("Loading sequences")
		catalog, err := loadCatalog()
		if err := step.Finish(err); err != nil {
			return err
		}
		seq, err := catalog.Get(args[0])
		if err != nil {
			return err
		}
		vars, err := parseVarAssignments(runSet)
		if err != nil {
			return err
		}
		if runLoad != "" && runNoSave {
			return fmt.Errorf("--load reads the save database and cannot be combined with --no-save")
		}

		var database *db.DB
		if !runNoSave {
			step := startProgress("Opening save database")
			database, err = openDatabase(ctx)
			if err := step.Finish(err); err != nil {
				return err
			}
			defer database.Close()
		}

		var lines *tui.LineBuffer
		var out io.Writer = stdout(cmd)
		if runUseTUI {
			lines = tui.NewLineBuffer(500)
			out = lines
		} else if IsJSONOutput() {
			out = io.Discard
		}

		sess, err := newSession(ctx, sessionOptions{
			Config:  cfg,
			Catalog: catalog,
			Out:     out,
			DB:      database,
			Vars:    vars,
			Speed:   runSpeed,
		})
		if err != nil {
			return err
		}
		defer sess.Close()

		if runLoad != "" {
			save, err := findSave(ctx, db.NewSaveRepository(database), runLoad)
			if err != nil {
				return err
			}
			var loadErr error
			if err := sess.call(ctx, func() { loadErr = sess.scene.Load(save) }); err != nil {
				return err
			}
			if loadErr != nil {
				return loadErr
			}
			if err := applyVars(ctx, sess, vars); err != nil {
				return err
			}
		}

		var playErr error
		if err := sess.call(ctx, func() { playErr = sess.scene.Play(seq.Name) }); err != nil {
			return err
		}
		if playErr != nil {
			return playErr
		}

		if runUseTUI {
			return launchTUI(sess, lines, seq.Name, cfg.TUI.Theme)
		}

		opts := driveOptions{
			Choices:     runChoices,
			MaxDuration: runMaxDuration,
			Out:         stdout(cmd),
		}
		if in := choiceInput(os.Stdin); in != nil {
			opts.In = in
		}
		result, err := drive(ctx, sess, opts)
		if err != nil {
			return err
		}
		if err := sess.call(ctx, func() { result.Variables = sess.scene.Vars().Snapshot() }); err != nil {
			return err
		}
		result.Sequence = seq.Name

		if IsJSONOutput() {
			return WriteOutput(stdout(cmd), result)
		}
		printRunSummary(stdout(cmd), result)
		return nil
	},
}

// driveOptions controls a headless run.
type driveOptions struct {
	// Choices answers menus in order, 1-based.
	Choices     []int
	MaxDuration time.Duration

	// PollInterval is wall time between state checks. Defaults to 20ms.
	PollInterval time.Duration

	// In is read for choices once Choices is used up. Nil closes the menu.
	In  io.Reader
	Out io.Writer
}

// runResult summarizes a headless run.
type runResult struct {
	Sequence  string         `json:"sequence"`
	GameTime  time.Duration  `json:"game_time_ns"`
	Choices   []int          `json:"choices,omitempty"`
	Abandoned []string       `json:"abandoned,omitempty"`
	TimedOut  bool           `json:"timed_out"`
	Variables map[string]any `json:"variables"`
}

// drive polls the session until the scene is idle, answering menus as they open.
func drive(ctx context.Context, sess *session, opts driveOptions) (*runResult, error) {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 20 * time.Millisecond
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	var reader *bufio.Reader
	if opts.In != nil {
		reader = bufio.NewReader(opts.In)
	}

	result := &runResult{}
	start := sess.clock.Now()
	pending := append([]int(nil), opts.Choices...)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		var idle bool
		var conv *dialogue.Conversation
		if err := sess.call(ctx, func() {
			conv = sess.scene.OpenConversation()
			idle = sess.scene.Idle()
		}); err != nil {
			return nil, err
		}
		result.GameTime = sess.clock.Now().Sub(start)

		if conv != nil {
			choice, ok, err := nextChoice(conv, &pending, reader, out)
			if err != nil {
				return nil, err
			}
			if !ok {
				result.Abandoned = append(result.Abandoned, conv.Name())
				if err := sess.call(ctx, conv.Close); err != nil {
					return nil, err
				}
				continue
			}

			var chooseErr error
			if err := sess.call(ctx, func() { chooseErr = conv.Choose(choice - 1) }); err != nil {
				return nil, err
			}
			if errors.Is(chooseErr, dialogue.ErrInvalidChoice) {
				fmt.Fprintf(out, "Choice %d is not on the menu.\n", choice)
				continue
			}
			if chooseErr != nil {
				return nil, chooseErr
			}
			result.Choices = append(result.Choices, choice)
			continue
		}

		if idle {
			return result, nil
		}
		if opts.MaxDuration > 0 && result.GameTime >= opts.MaxDuration {
			result.TimedOut = true
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// nextChoice takes the next queued answer, or prompts for one. ok is false
// when the menu should be closed unanswered.
func nextChoice(conv *dialogue.Conversation, pending *[]int, reader *bufio.Reader, out io.Writer) (int, bool, error) {
	if len(*pending) > 0 {
		choice := (*pending)[0]
		*pending = (*pending)[1:]
		return choice, true, nil
	}
	if reader == nil {
		return 0, false, nil
	}

	count := len(conv.Options())
	for {
		fmt.Fprintf(out, "Choose [1-%d]: ", count)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return 0, false, nil
			}
			return 0, false, fmt.Errorf("read choice: %w", err)
		}
		choice, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr == nil && choice >= 1 && choice <= count {
			return choice, true, nil
		}
		fmt.Fprintf(out, "Enter a number between 1 and %d.\n", count)
	}
}

func printRunSummary(out io.Writer, result *runResult) {
	fmt.Fprintln(out)
	status := colorize("finished", colorGreen)
	if result.TimedOut {
		status = colorize("stopped at --max-duration", colorYellow)
	}
	fmt.Fprintf(out, "%s %s after %s of game time\n", result.Sequence, status, formatDuration(result.GameTime))
	if len(result.Abandoned) > 0 {
		fmt.Fprintf(out, "Menus closed without a choice: %s\n", strings.Join(result.Abandoned, ", "))
	}
}

// applyVars sets --set values again after a save replaced the store.
func applyVars(ctx context.Context, sess *session, vars map[string]any) error {
	var setErr error
	err := sess.call(ctx, func() {
		for name, value := range vars {
			if setErr = sess.scene.Vars().Set(name, value); setErr != nil {
				return
			}
		}
	})
	if err != nil {
		return err
	}
	return setErr
}

// parseVarAssignments parses key=value pairs. Each entry may hold several
// comma-separated pairs. Values are typed the way sequence defaults are.
func parseVarAssignments(items []string) (map[string]any, error) {
	vars := make(map[string]any)
	for _, item := range items {
		for _, pair := range strings.Split(item, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid variable %q (expected key=value)", pair)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("invalid variable %q (empty key)", pair)
			}
			vars[key] = variables.Parse(value)
		}
	}
	return vars, nil
}
