package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/cutscene/internal/actions"
	"github.com/opencode-ai/cutscene/internal/config"
	"github.com/opencode-ai/cutscene/internal/models"
	"github.com/opencode-ai/cutscene/internal/sequences"
)

var (
	listTags []string
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(validateCmd)

	listCmd.Flags().StringSliceVar(&listTags, "tag", nil, "only list sequences carrying one of these tags")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available sequences",
	Long:  "List sequences from the configured directory, the project, the user config and the built-in demos.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		items := filterSequences(catalog.List(), listTags)

		if IsJSONOutput() {
			return WriteOutput(stdout(cmd), items)
		}
		if len(items) == 0 {
			fmt.Fprintln(stdout(cmd), "No sequences found.")
			return nil
		}

		userDir, projectDir := sequenceDirs()
		rows := make([][]string, 0, len(items))
		for _, seq := range items {
			rows = append(rows, []string{
				seq.Name,
				string(seq.Type),
				strconv.Itoa(len(seq.Actions)),
				formatYesNo(seq.Asset),
				sequenceSourceLabel(seq.Source, userDir, projectDir),
				truncateText(seq.Description, 60),
			})
		}
		return writeTable(stdout(cmd), []string{"NAME", "TYPE", "ACTIONS", "ASSET", "SOURCE", "DESCRIPTION"}, rows)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a sequence's actions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		seq := findSequenceByName(catalog.List(), args[0])
		if seq == nil {
			return fmt.Errorf("%w: %s", sequences.ErrSequenceNotFound, args[0])
		}
		if IsJSONOutput() {
			return WriteOutput(stdout(cmd), seq)
		}

		out := stdout(cmd)
		fmt.Fprintf(out, "%s (%s)\n", seq.Name, seq.Type)
		if seq.Description != "" {
			fmt.Fprintf(out, "%s\n", seq.Description)
		}
		if seq.Conversation != nil {
			fmt.Fprintf(out, "Hands off to conversation %q with %s.\n",
				seq.Conversation.Name, formatCount(len(seq.Conversation.Options), "option", "options"))
		}
		fmt.Fprintln(out)

		rows := make([][]string, 0, len(seq.Actions))
		for _, a := range seq.Actions {
			rows = append(rows, []string{
				strconv.Itoa(a.ID),
				a.Kind,
				formatYesNo(!a.Disabled),
				describeAction(a),
				describeOutcomes(a),
			})
		}
		return writeTable(out, []string{"ID", "KIND", "ENABLED", "DETAIL", "NEXT"}, rows)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check sequence files for authoring errors",
	Long:  "Parse each file and build its actions, reporting every problem found.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results := make([]validationResult, 0, len(args))
		failed := 0
		for _, path := range args {
			res := validateFile(path)
			if !res.Valid {
				failed++
			}
			results = append(results, res)
		}

		if IsJSONOutput() {
			if err := WriteOutput(stdout(cmd), results); err != nil {
				return err
			}
		} else {
			for _, res := range results {
				if res.Valid {
					fmt.Fprintf(stdout(cmd), "%s %s (%s)\n", colorize("ok", colorGreen), res.Path, res.Name)
					continue
				}
				fmt.Fprintf(stdout(cmd), "%s %s\n", colorize("FAIL", colorRed), res.Path)
				for _, problem := range res.Problems {
					fmt.Fprintf(stdout(cmd), "  - %s\n", problem)
				}
			}
		}

		if failed > 0 {
			return fmt.Errorf("%s failed validation", formatCount(failed, "file", "files"))
		}
		return nil
	},
}

type validationResult struct {
	Path     string   `json:"path"`
	Name     string   `json:"name,omitempty"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

func validateFile(path string) validationResult {
	res := validationResult{Path: path}
	seq, err := sequences.LoadSequence(path)
	if err != nil {
		res.Problems = []string{err.Error()}
		return res
	}
	res.Name = seq.Name

	if _, err := actions.BuildSequence(seq); err != nil {
		var verr *models.ValidationErrors
		if errors.As(err, &verr) {
			for _, e := range verr.Errors {
				res.Problems = append(res.Problems, e.Error())
			}
		} else {
			res.Problems = []string{err.Error()}
		}
		return res
	}
	res.Valid = true
	return res
}

func loadCatalog() (*sequences.Catalog, error) {
	cfg := currentConfig()
	return sequences.LoadCatalog(projectDir(cfg), cfg.Sequences.Dir)
}

func projectDir(cfg *config.Config) string {
	if cfg.Sequences.ProjectDir != "" {
		return cfg.Sequences.ProjectDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

func sequenceDirs() (string, string) {
	userDir := filepath.Join(config.ConfigDir(), "sequences")
	project := projectDir(currentConfig())
	if project == "" {
		return userDir, ""
	}
	return userDir, filepath.Join(project, ".cutscene", "sequences")
}

func filterSequences(items []*sequences.Sequence, tags []string) []*sequences.Sequence {
	if len(tags) == 0 {
		return items
	}
	want := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		want[strings.ToLower(strings.TrimSpace(tag))] = struct{}{}
	}

	out := make([]*sequences.Sequence, 0, len(items))
	for _, seq := range items {
		for _, tag := range seq.Tags {
			if _, ok := want[strings.ToLower(tag)]; ok {
				out = append(out, seq)
				break
			}
		}
	}
	return out
}

func findSequenceByName(items []*sequences.Sequence, name string) *sequences.Sequence {
	name = strings.TrimSpace(name)
	for _, seq := range items {
		if strings.EqualFold(seq.Name, name) {
			return seq
		}
	}
	return nil
}

func sequenceSourceLabel(source, userDir, projectDir string) string {
	switch {
	case source == "builtin":
		return "builtin"
	case projectDir != "" && strings.HasPrefix(source, projectDir):
		return "project"
	case userDir != "" && strings.HasPrefix(source, userDir):
		return "user"
	default:
		return "file"
	}
}

func describeAction(a sequences.ActionSpec) string {
	var detail string
	switch a.Kind {
	case actions.KindSay:
		detail = a.Text
		if a.Speaker != "" {
			detail = a.Speaker + ": " + detail
		}
	case actions.KindPause:
		detail = a.Duration
	case actions.KindSetVariable:
		op := a.Operator
		if op == "" {
			op = "="
		}
		detail = fmt.Sprintf("%s %s %s", a.Variable, op, a.Value)
	case actions.KindCheckVariable:
		op := a.Operator
		if op == "" {
			op = "=="
		}
		detail = fmt.Sprintf("%s %s %s", a.Variable, op, a.Value)
	case actions.KindCheckScript:
		detail = a.Script
	case actions.KindRunSequence:
		detail = a.Sequence
		if a.Asset {
			detail += " (asset)"
		}
	case actions.KindSetMode:
		detail = a.Mode
	}
	if a.Label != "" {
		if detail == "" {
			detail = a.Label
		} else {
			detail = a.Label + ": " + detail
		}
	}
	return truncateText(detail, 50)
}

func describeOutcomes(a sequences.ActionSpec) string {
	parts := make([]string, 0, 3)
	if !isDefaultOutcome(a.End) {
		parts = append(parts, describeOutcome(a.End))
	}
	if !isDefaultOutcome(a.OnTrue) {
		parts = append(parts, "true: "+describeOutcome(a.OnTrue))
	}
	if !isDefaultOutcome(a.OnFalse) {
		parts = append(parts, "false: "+describeOutcome(a.OnFalse))
	}
	if len(parts) == 0 {
		return "continue"
	}
	return strings.Join(parts, ", ")
}

func isDefaultOutcome(o sequences.OutcomeSpec) bool {
	return o.Policy == "" || o.Policy == "continue"
}

func describeOutcome(o sequences.OutcomeSpec) string {
	switch o.Policy {
	case "skip":
		if o.Target != 0 {
			return fmt.Sprintf("skip to %d", o.Target)
		}
		if o.Index != nil {
			return fmt.Sprintf("skip to #%d", *o.Index)
		}
		return "skip"
	case "run_sequence":
		label := "run " + o.Sequence
		if o.StopAfter {
			label += " and stop"
		}
		return label
	case "":
		return "continue"
	default:
		return o.Policy
	}
}
