// halachactl is the operator CLI: preview selections, validate schedule
// tables and generate new ones.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/hebcal"
	"halacha-yomi-bot/internal/usecase/schedule"
	"halacha-yomi-bot/internal/usecase/selection"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "halachactl",
		Short:         "Operator tooling for the daily Likutei Halachot broadcast",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPreviewCmd(), newScheduleCmd())
	return root
}

func newPreviewCmd() *cobra.Command {
	var (
		dateFlag     string
		strategy     string
		schedulePath string
		lookback     int
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the selection for a date without sending anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := previewDate(dateFlag, time.Now())
			if err != nil {
				return err
			}

			catalog := domain.DefaultCatalog()
			selector, err := buildSelector(catalog, strategy, schedulePath, lookback)
			if err != nil {
				return err
			}
			sel, err := selector.Select(date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Date:     %s (%s)\n", sel.DateKey(), hebcal.FromGregorian(date))
			fmt.Fprintf(out, "Strategy: %s\n", sel.Strategy)
			for i, e := range sel.Excerpts {
				section, _ := catalog.ByID(e.SectionID)
				fmt.Fprintf(out, "%d. %s %d  (%s)\n", i+1, section.Name, e.Chapter, e.Ref(catalog))
			}
			for _, note := range sel.Notes {
				fmt.Fprintf(out, "Note: %s\n", note)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "date to preview, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&strategy, "strategy", "random", "selection strategy: random or calendar")
	cmd.Flags().StringVar(&schedulePath, "schedule", "", "schedule table path for the calendar strategy")
	cmd.Flags().IntVar(&lookback, "lookback", 3, "years of history to avoid repeating")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Work with yearly schedule tables",
	}
	cmd.AddCommand(newScheduleValidateCmd(), newScheduleGenerateCmd())
	return cmd
}

func newScheduleValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a schedule table for gaps and catalog mismatches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := schedule.Load(args[0])
			if err != nil {
				return err
			}
			problems := table.Validate(domain.DefaultCatalog())
			if len(problems) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries for year %d, no problems\n",
					args[0], table.Len(), table.Meta().Year)
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.DateKey, p.Reason)
			}
			return fmt.Errorf("%d problems found", len(problems))
		},
	}
}

func newScheduleGenerateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate <hebrew-year>",
		Short: "Generate a sequential schedule table for a Hebrew year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q: %w", args[0], err)
			}

			table := schedule.Generate(year, domain.DefaultCatalog())
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return table.Encode(w)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the table to a file instead of stdout")
	return cmd
}

// broadcastTimezone matches the broadcaster's default TZ, so a bare preview
// shows the day the bot would actually send.
const broadcastTimezone = "Asia/Jerusalem"

// previewDate resolves the --date flag, defaulting to the current date in
// the broadcast timezone rather than the machine's local one. A preview run
// near midnight on a server in another zone would otherwise show the wrong
// day.
func previewDate(flag string, now time.Time) (time.Time, error) {
	if flag != "" {
		date, err := time.Parse("2006-01-02", flag)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date: %w", err)
		}
		return date, nil
	}
	loc, err := time.LoadLocation(broadcastTimezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone: %w", err)
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), nil
}

func buildSelector(catalog *domain.Catalog, strategy, schedulePath string, lookback int) (domain.Selector, error) {
	random, err := selection.NewRandom(catalog, lookback)
	if err != nil {
		return nil, err
	}
	switch strategy {
	case "random", "":
		return random, nil
	case "calendar":
		if schedulePath == "" {
			return nil, fmt.Errorf("the calendar strategy needs --schedule")
		}
		table, err := schedule.Load(schedulePath)
		if err != nil {
			return nil, err
		}
		return selection.NewCalendar(catalog, table, random, zerolog.Nop())
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}
