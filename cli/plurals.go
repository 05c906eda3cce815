// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"codeberg.org/lingosync/lingosync/core/plural"
)

const defaultPluralSample = 12

var errNoLocale = errors.New("no locale given and no target locales configured")

func (a *app) pluralsCommand() *cobra.Command {
	var (
		sample int
		list   bool
	)

	cmd := &cobra.Command{
		Use:   "plurals [locale...]",
		Short: "Print the plural forms of locales and which form each count selects.",
		Long: `plurals prints the plural forms of each locale, its gettext Plural-Forms
header and the form selected for the counts 0 to --sample. Without arguments
it prints the configured target locales; --list prints every known locale.`,
		RunE: func(_ *cobra.Command, args []string) error {
			resolver := a.resolver()

			if list {
				a.printf("%s\n", strings.Join(resolver.Locales(), "\n"))

				return nil
			}

			if len(args) == 0 && a.cfg != nil {
				args = a.cfg.TargetLocales
			}

			if len(args) == 0 {
				return errNoLocale
			}

			for i, locale := range args {
				if i > 0 {
					a.printf("\n")
				}

				rule, err := resolver.Resolve(locale)
				if err != nil {
					return err
				}

				if err := a.printRule(locale, rule, sample); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&sample, "sample", defaultPluralSample, "print the selected form for counts up to this value")
	cmd.Flags().BoolVar(&list, "list", false, "list every locale with a plural rule")

	return cmd
}

// resolver returns the configured resolver, or the built-in one when there
// is no usable configuration.
func (a *app) resolver() *plural.Resolver {
	cfg, err := a.load()
	if err != nil {
		log.Debug().Err(err).Msg("Using the built-in plural rules")

		return plural.Default()
	}

	return cfg.Resolver()
}

func (a *app) printRule(locale string, rule *plural.Rule, sample int) error {
	a.printf("%s (%s): %d forms\n%s\n", locale, rule.Locale, rule.Count(), rule.Header())

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "N\tSLOT\tFORM")

	for n := 0; n <= sample; n++ {
		slot := rule.Select(n)
		fmt.Fprintf(w, "%d\t%d\t%s\n", n, slot, rule.Forms[slot])
	}

	return w.Flush()
}
