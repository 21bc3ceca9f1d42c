package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"chat-widget/internal/analytics"
	"chat-widget/internal/formatter"
	"chat-widget/internal/storage"
)

var offline = map[string]string{"offline": "true"}

func newSendCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			msgs, err := a.widget.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printMessage(cmd.OutOrStdout(), msgs[len(msgs)-1])
			return nil
		},
	}
}

func newHistoryCmd(get func() *app) *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the stored conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			out := cmd.OutOrStdout()
			if asHTML {
				for _, r := range a.widget.Render() {
					fmt.Fprintf(out, "<div class=\"message %s\" data-time=\"%s\">%s</div>\n", r.Role, r.Time, r.HTML)
				}
				return nil
			}
			for _, m := range a.widget.Messages() {
				printMessage(out, m)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "print the formatted display markup instead")
	return cmd
}

func newClearCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset the conversation to the welcome message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs := get().widget.Clear(cmd.Context())
			for _, m := range msgs {
				printMessage(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}

func newFormatCmd() *cobra.Command {
	var sanitize bool
	cmd := &cobra.Command{
		Use:         "format [file]",
		Short:       "Render markdown from a file or stdin into display markup",
		Args:        cobra.MaximumNArgs(1),
		Annotations: offline,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.Wrap(err, "failed to open input")
				}
				defer f.Close()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return errors.Wrap(err, "failed to read input")
			}
			var opts []formatter.Option
			if sanitize {
				opts = append(opts, formatter.WithSanitizer(formatter.SafePolicy()))
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.New(opts...).Format(string(raw)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&sanitize, "sanitize", false, "strip unsafe markup from the output")
	return cmd
}

func newStatsCmd(get func() *app) *cobra.Command {
	var (
		date   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:         "stats",
		Short:       "Summarize recorded exchanges for one day",
		Args:        cobra.NoArgs,
		Annotations: offline,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if date != "" {
				d, err := time.Parse("2006-01-02", date)
				if err != nil {
					return errors.Wrap(err, "invalid --date, want YYYY-MM-DD")
				}
				day = d
			}
			rec, err := storage.NewFileRecorder(get().cfg.LogFilePath)
			if err != nil {
				return err
			}
			events, err := rec.LoadInteractions()
			if err != nil {
				return err
			}
			stats := analytics.AnalyzeDailyLogs(events, day)
			if asJSON {
				out, err := stats.ToJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), stats.Summary())
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to summarize, YYYY-MM-DD in UTC (default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the statistics as JSON")
	return cmd
}
