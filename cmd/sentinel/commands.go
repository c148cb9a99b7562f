package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	appinteractions "github.com/bryanwahyu/interaction-log/internal/application/interactions"
	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
	"github.com/bryanwahyu/interaction-log/internal/middleware"
)

func newSubmitCmd() *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "submit TEXT",
		Short: "Classify a community report and add it to the log",
		Long: `Submit sends the text to the classification service and records the
analysis. Press Ctrl-C while waiting to abandon the submission; you will be
asked whether a result that arrives later should still be saved.

Examples:
  sentinel submit "The bridge on 5th street is cracking" --channel WhatsApp
  echo "Water has been brown for a week" | sentinel submit -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[0]
			if text == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(b)
			}
			return runSubmit(cmd, text, channel)
		},
	}
	cmd.Flags().StringVarP(&channel, "channel", "c", "Other", "Channel the report came from")
	return cmd
}

func runSubmit(cmd *cobra.Command, text, channel string) error {
	if err := middleware.ValidateText(text); err != nil {
		return err
	}
	ch, err := middleware.ValidateChannel(channel)
	if err != nil {
		return err
	}

	app, _, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Classifying with %s...", app.Classifier)
	s.Start()
	rec, err := app.Service.Submit(ctx, appinteractions.SubmitCommand{Text: text, Channel: string(ch)})
	s.Stop()
	stop()

	var abandoned *domain.AbandonedError
	if errors.As(err, &abandoned) {
		return resolveAbandoned(cmd, app.Service, abandoned.Ticket)
	}
	if err != nil {
		if appinteractions.IsRetryable(err) {
			printError("Classification failed, your text was not recorded and can be submitted again")
		}
		return err
	}
	printSuccess("Interaction recorded")
	return printRecord(cmd.OutOrStdout(), rec)
}

// resolveAbandoned asks whether to keep the abandoned result. The process
// must stay alive for the result to arrive.
func resolveAbandoned(cmd *cobra.Command, svc *appinteractions.Service, ticket string) error {
	printWarning("Submission abandoned")
	if !confirm(cmd, "Wait for the result and save it when it arrives?") {
		return svc.DiscardPending(ticket)
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
	s.Suffix = " Waiting for the abandoned result..."
	s.Start()
	defer s.Stop()
	for {
		rec, err := svc.ConfirmPending(cmd.Context(), ticket)
		if errors.Is(err, domain.ErrBusy) {
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-time.After(250 * time.Millisecond):
			}
			continue
		}
		s.Stop()
		if err != nil {
			return err
		}
		printSuccess("Late result saved")
		return printRecord(cmd.OutOrStdout(), rec)
	}
}

func newListCmd() *cobra.Command {
	var period string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List interactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := middleware.ValidatePeriod(period)
			if err != nil {
				return err
			}
			app, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			records := app.Service.List(p)
			if limit = middleware.ValidateLimit(limit); limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			return printList(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", "", "Only records of the trailing period (daily, weekly, monthly)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n records")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one interaction with its full analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.Service.Get(domain.RecordID(args[0]))
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), rec)
		},
	}
}

func newStatsCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate risk indicators",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := middleware.ValidatePeriod(period)
			if err != nil {
				return err
			}
			app, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return printStats(cmd.OutOrStdout(), p, app.Service.Stats(p))
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", "", "Only records of the trailing period (daily, weekly, monthly)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Export one interaction (xlsx, csv, pdf) to the export target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := middleware.ValidateFormat(format)
			if err != nil {
				return err
			}
			app, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			exp, err := app.Service.ExportRecord(cmd.Context(), domain.RecordID(args[0]), f)
			if err != nil {
				return err
			}
			return printExport(cmd.OutOrStdout(), exp)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "Export format (xlsx, csv, pdf)")
	return cmd
}

func newReportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report PERIOD",
		Short: "Export the consolidated report of a trailing period",
		Long: `Report writes every interaction of the trailing period (daily, weekly or
monthly) to the export target. Tabular formats carry the full column set, the
PDF carries a one-row-per-record summary table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParsePeriod(args[0])
			if err != nil {
				return err
			}
			f, err := middleware.ValidateFormat(format)
			if err != nil {
				return err
			}
			app, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			exp, err := app.Service.ExportPeriod(cmd.Context(), p, f)
			if errors.Is(err, domain.ErrEmptySelection) {
				printWarning(fmt.Sprintf("Nothing to export for %s", strings.ToLower(string(p))))
				return nil
			}
			if err != nil {
				return err
			}
			return printExport(cmd.OutOrStdout(), exp)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "Export format (xlsx, csv, pdf)")
	return cmd
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every interaction in the log",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			n := app.Store.Len()
			confirmed := yes || confirm(cmd, fmt.Sprintf("Delete all %d interactions? This cannot be undone.", n))
			if err := app.Service.Clear(cmd.Context(), confirmed); err != nil {
				if errors.Is(err, domain.ErrConfirmationRequired) {
					printWarning("Nothing deleted")
					return nil
				}
				return err
			}
			printSuccess(fmt.Sprintf("Deleted %d interactions", n))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
