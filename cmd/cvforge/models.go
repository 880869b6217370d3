package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cvforge/cvforge/pkg/models"
	"github.com/cvforge/cvforge/pkg/registry"
	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	var (
		task    string
		premium bool
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models, or the fallback chain for a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.Default()

			if task != "" {
				t := models.ParseTask(task)
				primary := reg.SelectPrimary(t, premium)
				fmt.Printf("Task %s, %s tier\n", t, models.TierName(premium))
				for i, id := range reg.Candidates(primary, t, premium) {
					fmt.Printf("  %d. %s\n", i+1, id)
				}
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tFREE\tMAX TOKENS\tSPEED\tQUALITY\tTASKS")
			for _, d := range reg.Models() {
				tasks := make([]string, len(d.Capabilities))
				for i, c := range d.Capabilities {
					tasks[i] = string(c)
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%d\t%d\t%s\n",
					d.ID, d.DisplayName, d.Free, d.MaxTokens, d.Speed, d.Quality, strings.Join(tasks, ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "show the candidate chain for this task")
	cmd.Flags().BoolVar(&premium, "premium", false, "use the premium tier for --task")
	return cmd
}
