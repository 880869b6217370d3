package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cvforge/cvforge/pkg/history"
	"github.com/cvforge/cvforge/pkg/models"
	"github.com/cvforge/cvforge/pkg/quota"
	"github.com/spf13/cobra"
)

func newQuotaCmd() *cobra.Command {
	var premium bool

	cmd := &cobra.Command{
		Use:   "quota <user>",
		Short: "Show quota usage for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Quota.Enabled || len(cfg.Quota.Policies) == 0 {
				fmt.Println("No quota policies configured.")
				return nil
			}

			h, err := history.New(cfg.DBPath, 0)
			if err != nil {
				return err
			}
			defer h.Close()

			statuses, err := quota.New(cfg.Quota.Policies, h).Status(context.Background(), args[0], premium)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Printf("No policies apply to the %s tier.\n", models.TierName(premium))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIER\tTASK\tPERIOD\tLIMIT\tUSED\tREMAINING")
			for _, s := range statuses {
				task := string(s.Policy.Task)
				if task == "" {
					task = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					s.Policy.Tier, task, s.Policy.Period, s.Policy.MaxRequests, s.Used, s.Remaining)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&premium, "premium", false, "show the premium tier policies")
	return cmd
}
