package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	config "guidepost/app/configs"
	"guidepost/app/core/advisor"
	"guidepost/app/core/assistant"
	"guidepost/app/core/knowledge"
	"guidepost/app/core/tracker"
	"guidepost/app/pkg/logger"
)

var enrichLimit int

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich tracker tasks with generated descriptions, then list upcoming work",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Init("output/logs"); err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		lib, err := knowledge.Load(cfg.Assistant.KnowledgeFile)
		if err != nil {
			return err
		}

		trackerClient := tracker.NewClient(tracker.Config{
			Token:          cfg.Tracker.Token,
			ProjectID:      cfg.Tracker.ProjectID,
			RequestTimeout: time.Duration(cfg.Tracker.HTTPTimeoutSec) * time.Second,
		})
		expert := advisor.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, lib)
		ops := assistant.New(cfg.Assistant.Name, trackerClient, expert, lib)

		fmt.Println("Enriching task descriptions...")
		res, err := ops.Enrich(cmd.Context(), enrichLimit)
		if err != nil {
			return fmt.Errorf("enrich tasks: %w", err)
		}
		fmt.Printf("Processed %d tasks: %d updated, %d skipped, %d failed\n",
			res.Processed, res.Updated, res.Skipped, res.Failed)

		upcoming, err := ops.Upcoming(cmd.Context(), 7)
		if err != nil {
			return fmt.Errorf("list upcoming tasks: %w", err)
		}
		if len(upcoming) == 0 {
			fmt.Println("No upcoming tasks in the next 7 days.")
			return nil
		}
		fmt.Println("\nUpcoming tasks:")
		for _, t := range upcoming {
			due := t.DueOn
			if due == "" {
				due = "no due date"
			}
			assignee := t.AssigneeName
			if assignee == "" {
				assignee = "unassigned"
			}
			fmt.Printf("  - %s (due %s, %s)\n", t.Name, due, assignee)
		}
		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "maximum tasks to enrich (0 = all)")
}
