package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cvforge/cvforge/pkg/history"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var (
		user   string
		recent int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dispatch history by task and model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			h, err := history.New(cfg.DBPath, 0)
			if err != nil {
				return err
			}
			defer h.Close()

			ctx := context.Background()

			if recent > 0 {
				recs, err := h.Recent(ctx, recent)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Println("No dispatches recorded.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tUSER\tTASK\tTIER\tMODEL\tOK\tCACHED\tKIND\tLATENCY\tQUALITY")
				for _, r := range recs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%t\t%s\t%s\t%.1f\n",
						r.CreatedAt.Format("2006-01-02T15:04:05"), r.User, r.Task, r.Tier, r.Model,
						r.OK, r.Cached, r.ErrorKind, r.Latency, r.Quality)
				}
				return w.Flush()
			}

			summaries, err := h.Summary(ctx, user)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No dispatches recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tMODEL\tREQUESTS\tOK\tCACHED\tAVG LATENCY\tAVG QUALITY")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.0fms\t%.1f\n",
					s.Task, s.Model, s.Requests, s.Succeeded, s.CacheHits, s.AvgLatencyMs, s.AvgQuality)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "filter by user id")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent dispatches instead of the summary")
	return cmd
}
