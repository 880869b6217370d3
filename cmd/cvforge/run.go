package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/cvforge/cvforge/pkg/assistant"
	"github.com/cvforge/cvforge/pkg/models"
	"github.com/cvforge/cvforge/pkg/resume"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		resumePath string
		task       string
		in         assistant.Input
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one résumé task and print the result",
		Example: `  cvforge run --resume cv.pdf --task analyze
  cvforge run --resume cv.txt --task cover-letter --job-title "Backend Engineer" --company Acme`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			text, err := resume.Load(resumePath)
			if err != nil {
				return err
			}
			in.ResumeText = text

			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			t := models.ParseTask(task)
			res, err := a.service.Run(ctx, t, in)
			if err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("no result (%s after %d attempts): %v", res.Kind, res.Attempts, res.Err)
			}

			logger.Info("done", "model", res.Model, "cached", res.Cached, "quality", res.Quality, "latency", res.Latency)
			if !asJSON {
				fmt.Println(res.Text)
				return nil
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(assistant.Decode(t, res.Text))
		},
	}

	cmd.Flags().StringVarP(&resumePath, "resume", "r", "", "résumé file (.pdf or text)")
	cmd.Flags().StringVarP(&task, "task", "t", "optimize", "optimize, analyze, cover-letter, interview, skills-gap, grammar")
	cmd.Flags().StringVar(&in.JobTitle, "job-title", "", "target job title")
	cmd.Flags().StringVar(&in.JobDescription, "job-description", "", "job posting text")
	cmd.Flags().StringVar(&in.CompanyName, "company", "", "hiring company")
	cmd.Flags().BoolVar(&in.Premium, "premium", false, "use the premium model tier")
	cmd.Flags().StringVar(&in.Model, "model", "", "specific upstream model id")
	cmd.Flags().IntVar(&in.MaxTokens, "max-tokens", 0, "override the response token budget")
	cmd.Flags().StringVar(&in.Language, "language", "", "response language code (en, pl, de, fr, es)")
	cmd.Flags().StringVar(&in.User, "user", "", "user id for quota and history")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the structured result as JSON")
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}
