// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"codeberg.org/lingosync/lingosync/core/history"
	"codeberg.org/lingosync/lingosync/core/pipeline"
)

const defaultHistoryLimit = 20

func (a *app) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs and undo them.",
		Long:  "history reads the run history database configured with history.path or --history.",
	}

	cmd.AddCommand(a.historyListCommand(), a.historyShowCommand(), a.historyRestoreCommand())

	return cmd
}

// openHistory opens the configured history store for a history subcommand.
func (a *app) openHistory(dryRun bool) (*session, error) {
	s, err := a.open(dryRun)
	if err != nil {
		return nil, err
	}

	if s.history == nil {
		s.close()

		return nil, pipeline.ErrNoHistory
	}

	return s, nil
}

func (a *app) historyListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openHistory(true)
			if err != nil {
				return err
			}
			defer s.close()

			runs, err := s.history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				a.printf("No runs recorded.\n")

				return nil
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCOMMAND\tSTARTED\tLOCALES\tWRITTEN\tCHANGES")

			for _, r := range runs {
				written := 0

				for _, l := range r.Locales {
					if l.Written {
						written++
					}
				}

				command := r.Command
				if r.DryRun {
					command += " (dry run)"
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					r.ID, command, r.StartedAt.Local().Format(time.DateTime), len(r.Locales), written, r.Changes)
			}

			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "number of runs to show, 0 for all")

	return cmd
}

func (a *app) historyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run> <locale>",
		Short: "Print the status changes a run made to one locale.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}

			s, err := a.openHistory(true)
			if err != nil {
				return err
			}
			defer s.close()

			changes, err := s.history.Changes(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHANGE\tCONTEXT\tSOURCE\tFROM\tTO")

			for _, c := range changes {
				source := c.Source
				if c.PreviousSource != "" {
					source = fmt.Sprintf("%s (was %s)", c.Source, c.PreviousSource)
				}

				fmt.Fprintf(w, "%s\t%s\t%q\t%s\t%s\n", c.Kind, c.Context, source, c.From, c.To)
			}

			return w.Flush()
		},
	}
}

func (a *app) historyRestoreCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "restore <run> <locale>",
		Short: "Write back a locale's catalog as it was before a run.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}

			s, err := a.openHistory(dryRun)
			if err != nil {
				return err
			}
			defer s.close()

			path, err := s.pipeline.Restore(cmd.Context(), id, args[1])
			if errors.Is(err, history.ErrNoSnapshot) {
				return fmt.Errorf("%w (the run did not replace an existing catalog)", err)
			}

			if err != nil {
				return err
			}

			if dryRun {
				a.printf("would restore %s\n", path)
			} else {
				a.printf("restored %s\n", path)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "check the snapshot without writing it")

	return cmd
}
