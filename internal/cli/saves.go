package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/cutscene/internal/db"
	"github.com/opencode-ai/cutscene/internal/models"
)

var (
	savesKind  string
	savesLimit int
	pruneKeep  int
)

func init() {
	rootCmd.AddCommand(savesCmd)
	savesCmd.AddCommand(savesListCmd)
	savesCmd.AddCommand(savesShowCmd)
	savesCmd.AddCommand(savesPruneCmd)

	savesListCmd.Flags().StringVar(&savesKind, "kind", "", "only show saves of this kind (auto, manual)")
	savesListCmd.Flags().IntVar(&savesLimit, "limit", 20, "maximum saves to show")

	savesPruneCmd.Flags().StringVar(&savesKind, "kind", string(models.SaveKindAuto), "kind of save to prune")
	savesPruneCmd.Flags().IntVar(&pruneKeep, "keep", 5, "number of newest saves to keep")
}

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Inspect saved games",
}

var savesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saves, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		kind, err := parseSaveKind(savesKind, true)
		if err != nil {
			return err
		}

		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		saves, err := db.NewSaveRepository(database).List(ctx, savesLimit)
		if err != nil {
			return err
		}
		if kind != "" {
			filtered := saves[:0]
			for _, save := range saves {
				if save.Kind == kind {
					filtered = append(filtered, save)
				}
			}
			saves = filtered
		}

		if IsJSONOutput() {
			return WriteOutput(stdout(cmd), saves)
		}
		if len(saves) == 0 {
			fmt.Fprintln(stdout(cmd), "No saves yet. Sequences marked autosave_after write one when they finish.")
			return nil
		}

		rows := make([][]string, 0, len(saves))
		for _, save := range saves {
			rows = append(rows, []string{
				shortID(save.ID),
				formatSaveKind(save.Kind),
				truncateText(save.Label, 30),
				save.Mode,
				formatCount(len(save.Variables), "variable", "variables"),
				save.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			})
		}
		return writeTable(stdout(cmd), []string{"ID", "KIND", "LABEL", "MODE", "VARIABLES", "CREATED"}, rows)
	},
}

var savesShowCmd = &cobra.Command{
	Use:   "show <id|latest>",
	Short: "Show one save",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		save, err := findSave(ctx, db.NewSaveRepository(database), args[0])
		if err != nil {
			return err
		}

		if IsJSONOutput() {
			return WriteOutput(stdout(cmd), save)
		}
		out := stdout(cmd)
		fmt.Fprintf(out, "Save:    %s\n", save.ID)
		fmt.Fprintf(out, "Kind:    %s\n", formatSaveKind(save.Kind))
		if save.Label != "" {
			fmt.Fprintf(out, "Label:   %s\n", save.Label)
		}
		fmt.Fprintf(out, "Mode:    %s\n", save.Mode)
		fmt.Fprintf(out, "Created: %s\n", save.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if len(save.Active) > 0 {
			fmt.Fprintf(out, "Active:  %s\n", strings.Join(save.Active, ", "))
		}

		names := make([]string, 0, len(save.Variables))
		for name := range save.Variables {
			names = append(names, name)
		}
		sort.Strings(names)
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			value := save.Variables[name]
			rows = append(rows, []string{name, fmt.Sprintf("%T", value), fmt.Sprint(value)})
		}
		if len(rows) == 0 {
			return nil
		}
		fmt.Fprintln(out)
		return writeTable(out, []string{"VARIABLE", "TYPE", "VALUE"}, rows)
	},
}

var savesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old saves, keeping the newest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		kind, err := parseSaveKind(savesKind, false)
		if err != nil {
			return err
		}
		if pruneKeep < 0 {
			return fmt.Errorf("--keep must be zero or more")
		}

		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		deleted, err := db.NewSaveRepository(database).Prune(ctx, kind, pruneKeep)
		if err != nil {
			return err
		}
		if IsJSONOutput() {
			return WriteOutput(stdout(cmd), map[string]any{"kind": kind, "kept": pruneKeep, "deleted": deleted})
		}
		fmt.Fprintf(stdout(cmd), "Deleted %s.\n", formatCount(int(deleted), string(kind)+" save", string(kind)+" saves"))
		return nil
	},
}

// findSave resolves a full id, a unique id prefix, or "latest".
func findSave(ctx context.Context, repo *db.SaveRepository, ref string) (*models.Save, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("save id is required")
	}
	if ref == "latest" {
		return repo.Latest(ctx, "")
	}

	save, err := repo.Get(ctx, ref)
	if err == nil {
		return save, nil
	}
	if !errors.Is(err, db.ErrSaveNotFound) {
		return nil, err
	}

	saves, err := repo.List(ctx, 500)
	if err != nil {
		return nil, err
	}
	var match *models.Save
	for _, candidate := range saves {
		if strings.HasPrefix(candidate.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("save id %q is ambiguous", ref)
			}
			match = candidate
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", db.ErrSaveNotFound, ref)
	}
	return match, nil
}

func parseSaveKind(value string, allowEmpty bool) (models.SaveKind, error) {
	switch kind := models.SaveKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case models.SaveKindAuto, models.SaveKindManual:
		return kind, nil
	case "":
		if allowEmpty {
			return "", nil
		}
		return "", fmt.Errorf("save kind is required (auto or manual)")
	default:
		return "", fmt.Errorf("unknown save kind %q (expected auto or manual)", value)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
