package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	config "guidepost/app/configs"
	"guidepost/app/core/advisor"
	"guidepost/app/core/assistant"
	"guidepost/app/core/interaction/cli"
	"guidepost/app/core/interaction/gateway"
	"guidepost/app/core/interaction/slack"
	"guidepost/app/core/knowledge"
	"guidepost/app/core/orchestrator/agent"
	"guidepost/app/core/orchestrator/history"
	"guidepost/app/core/queue"
	"guidepost/app/core/tracker"
	"guidepost/app/pkg/logger"
	"guidepost/app/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Slack bot and the operator console",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	if err := logger.Init("output/logs"); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	logger.Info("Guidepost starting...")

	cfg, err := config.Load(envFile)
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		return err
	}

	lib, err := knowledge.Load(cfg.Assistant.KnowledgeFile)
	if err != nil {
		logger.Error("Failed to load knowledge file: %v", err)
		return err
	}

	trackerClient := tracker.NewClient(tracker.Config{
		Token:          cfg.Tracker.Token,
		ProjectID:      cfg.Tracker.ProjectID,
		RequestTimeout: time.Duration(cfg.Tracker.HTTPTimeoutSec) * time.Second,
	})
	expert := advisor.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, lib)
	ops := assistant.New(cfg.Assistant.Name, trackerClient, expert, lib)

	brain := agent.NewAgent(cfg.Assistant.Name, expert, ops, lib, history.NewLog(history.DefaultLimit))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	gw := gateway.NewGateway(brain)
	gw.RegisterChannel(slack.NewChannel(slack.Config{
		BotToken:   cfg.Slack.BotToken,
		ListenPort: cfg.Slack.ListenPort,
		Status:     func() interface{} { return gw.HealthStatus() },
	}))
	gw.RegisterChannel(cli.NewCLIChannel("operator", cancel))

	jobs := queue.New(16)
	if err := jobs.Start(runCtx, 1); err != nil {
		logger.Error("Failed to start job queue: %v", err)
		return err
	}
	defer func() {
		if err := jobs.Stop(3 * time.Second); err != nil {
			logger.Error("Job queue stop: %v", err)
		}
	}()

	brain.SetJobQueue(jobs, func(notifyCtx context.Context, origin types.Message, text string) {
		if err := gw.DeliverDirect(notifyCtx, origin.ChannelID, origin, text); err != nil {
			logger.Error("Background notification failed: %v", err)
		}
	})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("Shutting down gracefully...")
		cancel()
	}()

	fmt.Printf("%s started! Use /assistant commands in your Slack workspace.\n", cfg.Assistant.Name)
	return gw.Start(runCtx)
}
