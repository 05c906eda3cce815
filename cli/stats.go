// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/pipeline"
)

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print entry counts by status and completion for every locale.",
		Long: `stats prints the number of entries per status for every target locale. The
report format selects the output: json and yaml print structured data, any
other format prints a table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(true)
			if err != nil {
				return err
			}
			defer s.close()

			stats, err := s.pipeline.Stats(cmd.Context())
			if err != nil {
				return err
			}

			switch s.cfg.Report.Format {
			case "json":
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(stats)
			case "yaml":
				out, err := yaml.MarshalWithOptions(stats, yaml.Indent(2), yaml.IndentSequence(true))
				if err != nil {
					return err
				}

				_, err = a.stdout.Write(out)

				return err
			default:
				return a.printStats(stats)
			}
		},
	}
}

func (a *app) printStats(stats []pipeline.LocaleStats) error {
	w := tabwriter.NewWriter(a.stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	fmt.Fprint(w, "LOCALE\t")

	for _, st := range catalog.Statuses {
		fmt.Fprintf(w, "%s\t", st)
	}

	fmt.Fprintln(w, "TOTAL\tDONE\t")

	for _, ls := range stats {
		if !ls.Exists {
			fmt.Fprintf(w, "%s\t(no catalog)\t\n", ls.Locale)

			continue
		}

		fmt.Fprintf(w, "%s\t", ls.Locale)

		for _, st := range catalog.Statuses {
			fmt.Fprintf(w, "%d\t", ls.Counts[st])
		}

		fmt.Fprintf(w, "%d\t%.1f%%\t\n", ls.Total, ls.Completion*100)
	}

	return w.Flush()
}
