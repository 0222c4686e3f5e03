package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/manash/roomedit/internal/journal"
)

var flagRecent int

// openJournal opens the configured journal, or the default one when
// journaling is off, so past runs can be browsed either way.
func (app *App) openJournal() (*journal.Store, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if flagJournal != "" {
		cfg.Journal = flagJournal
	}
	if enabled, useDefault := cfg.JournalEnabled(); enabled && !useDefault {
		return journal.NewStoreWithPath(cfg.Journal)
	}
	return journal.NewStore()
}

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Browse recorded sessions and generations",
	}

	sessionsCmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List recorded sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			sessions, err := store.ListSessions(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(app.Out, "No sessions recorded.")
				return nil
			}
			for _, s := range sessions {
				n, err := store.CountGenerations(ctx, s.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "%s  %s  %-4s  %d generation(s)\n",
					s.ID, journal.FormatTimestamp(s.UpdatedAt), s.Tier, n)
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "List the generations of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			sess, err := store.GetSession(ctx, args[0])
			if err != nil {
				return notFound("session", args[0], err)
			}
			gens, err := store.ListGenerations(ctx, sess.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Session %s (started %s)\n", sess.ID, journal.FormatTimestamp(sess.CreatedAt))
			printGenerations(app.Out, gens)
			return nil
		},
	}

	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "List the latest generations across sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flagRecent < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}
			store, err := app.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			gens, err := store.RecentGenerations(cmd.Context(), flagRecent)
			if err != nil {
				return err
			}
			printGenerations(app.Out, gens)
			return nil
		},
	}
	recentCmd.Flags().IntVarP(&flagRecent, "limit", "n", 10, "generations to list")

	getCmd := &cobra.Command{
		Use:   "get <generation-id>",
		Short: "Show one generation in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			g, err := store.GetGeneration(cmd.Context(), args[0])
			if err != nil {
				return notFound("generation", args[0], err)
			}
			fmt.Fprintf(app.Out, "ID:        %s\n", g.ID)
			fmt.Fprintf(app.Out, "Session:   %s\n", g.SessionID)
			fmt.Fprintf(app.Out, "Time:      %s\n", journal.FormatTimestamp(g.Timestamp))
			fmt.Fprintf(app.Out, "Model:     %s (%s)\n", g.Model, g.Tier)
			fmt.Fprintf(app.Out, "Mode:      %s\n", g.Mode)
			fmt.Fprintf(app.Out, "Prompt:    %q\n", g.Prompt)
			fmt.Fprintf(app.Out, "Scene:     %dx%d %s\n", g.Width, g.Height, g.AspectRatio)
			fmt.Fprintf(app.Out, "Mask:      %v\n", g.Masked)
			fmt.Fprintf(app.Out, "Reference: %v\n", g.Referenced)
			fmt.Fprintf(app.Out, "Status:    %s (%s)\n", g.Status, g.Duration)
			if g.Error != "" {
				fmt.Fprintf(app.Out, "Error:     %s\n", g.Error)
			}
			if g.Metadata.Cost > 0 {
				fmt.Fprintf(app.Out, "Cost:      $%.4f\n", g.Metadata.Cost)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:     "delete <session-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a session and its generations",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if _, err := store.GetSession(ctx, args[0]); err != nil {
				return notFound("session", args[0], err)
			}
			if err := store.DeleteSession(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Deleted session %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(sessionsCmd, showCmd, recentCmd, getCmd, deleteCmd)
	return cmd
}

func notFound(what, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s not found: %s", what, id)
	}
	return err
}

func printGenerations(out io.Writer, gens []*journal.Generation) {
	if len(gens) == 0 {
		fmt.Fprintln(out, "No generations recorded.")
		return
	}
	for _, g := range gens {
		status := color.GreenString("%s", g.Status)
		if g.Status != journal.StatusSucceeded {
			status = color.RedString("%s", g.Status)
		}
		fmt.Fprintf(out, "  %s  %s  %-4s %-9s %s  %q\n",
			g.ID, journal.FormatTimestamp(g.Timestamp), g.Tier, g.Mode, status, truncate(g.Prompt, 40))
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
