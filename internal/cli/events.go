package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/cutscene/internal/db"
	"github.com/opencode-ai/cutscene/internal/models"
)

var (
	eventsType     string
	eventsSequence string
	eventsSince    time.Duration
	eventsLimit    int
	eventsOlder    time.Duration
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsPruneCmd)

	eventsCmd.Flags().StringVar(&eventsType, "type", "", "only show events of this type (e.g. sequence.started, mode.changed)")
	eventsCmd.Flags().StringVar(&eventsSequence, "sequence", "", "only show events for this sequence")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 0, "only show events newer than this (e.g. 1h)")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "show at most this many of the latest events")

	eventsPruneCmd.Flags().DurationVar(&eventsOlder, "older-than", 7*24*time.Hour, "delete events older than this")
}

var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"log"},
	Short:   "Show the engine event log",
	Long:    "Show the latest sequence, mode and autosave events recorded by previous runs, oldest first.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		query, err := buildEventQuery(eventsType, eventsSequence, eventsSince, eventsLimit, time.Now())
		if err != nil {
			return err
		}

		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		page, err := db.NewEventRepository(database).Query(ctx, query)
		if err != nil {
			return err
		}
		// Fetched newest first so the limit keeps the latest; print in time order.
		for i, j := 0, len(page.Events)-1; i < j; i, j = i+1, j-1 {
			page.Events[i], page.Events[j] = page.Events[j], page.Events[i]
		}

		if IsJSONOutput() {
			return WriteOutput(stdout(cmd), page.Events)
		}
		if len(page.Events) == 0 {
			fmt.Fprintln(stdout(cmd), "No events recorded.")
			return nil
		}

		rows := make([][]string, 0, len(page.Events))
		for _, event := range page.Events {
			rows = append(rows, []string{
				event.Timestamp.Local().Format("15:04:05.000"),
				formatEventType(event.Type),
				string(event.EntityType),
				event.EntityID,
				truncateText(string(event.Payload), 60),
			})
		}
		return writeTable(stdout(cmd), []string{"TIME", "TYPE", "ENTITY", "ID", "PAYLOAD"}, rows)
	},
}

var eventsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		if eventsOlder <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}

		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		deleted, err := db.NewEventRepository(database).DeleteBefore(ctx, time.Now().Add(-eventsOlder))
		if err != nil {
			return err
		}
		if IsJSONOutput() {
			return WriteOutput(stdout(cmd), map[string]any{"deleted": deleted})
		}
		fmt.Fprintf(stdout(cmd), "Deleted %s.\n", formatCount(int(deleted), "event", "events"))
		return nil
	},
}

var knownEventTypes = []models.EventType{
	models.EventTypeSequenceStarted,
	models.EventTypeSequenceEnded,
	models.EventTypeSequenceKilled,
	models.EventTypeConversationHandoff,
	models.EventTypeModeChanged,
	models.EventTypeAutosaveWritten,
	models.EventTypeAutosaveSkipped,
	models.EventTypeAutosaveFailed,
	models.EventTypeError,
	models.EventTypeWarning,
}

func buildEventQuery(eventType, sequence string, since time.Duration, limit int, now time.Time) (db.EventQuery, error) {
	query := db.EventQuery{Limit: limit, Newest: true}

	if eventType = strings.TrimSpace(eventType); eventType != "" {
		t, err := parseEventType(eventType)
		if err != nil {
			return query, err
		}
		query.Type = &t
	}
	if sequence = strings.TrimSpace(sequence); sequence != "" {
		entity := models.EntityTypeSequence
		query.EntityType = &entity
		query.EntityID = &sequence
	}
	if since < 0 {
		return query, fmt.Errorf("--since must be positive")
	}
	if since > 0 {
		from := now.Add(-since)
		query.Since = &from
	}
	return query, nil
}

func parseEventType(value string) (models.EventType, error) {
	for _, known := range knownEventTypes {
		if strings.EqualFold(string(known), value) {
			return known, nil
		}
	}
	names := make([]string, 0, len(knownEventTypes))
	for _, known := range knownEventTypes {
		names = append(names, string(known))
	}
	return "", fmt.Errorf("unknown event type %q (known: %s)", value, strings.Join(names, ", "))
}
