package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	config "guidepost/app/configs"
	"guidepost/app/core/advisor"
	"guidepost/app/core/knowledge"
	"guidepost/app/pkg/logger"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Interactive question session with the AI expert",
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

		fmt.Printf("=== %s ===\n", cfg.Assistant.Name)
		reader := bufio.NewScanner(os.Stdin)

		fmt.Println("\nSelect AI model:")
		fmt.Printf("1. %s (default, faster)\n", cfg.OpenAI.Model)
		fmt.Println("2. gpt-4o (more advanced)")
		fmt.Print("> ")
		model := cfg.OpenAI.Model
		if reader.Scan() && strings.TrimSpace(reader.Text()) == "2" {
			model = "gpt-4o"
		}

		expert := advisor.New(cfg.OpenAI.APIKey, model, lib)
		fmt.Printf("Initialized %s with model: %s\n", cfg.Assistant.Name, model)

		for {
			fmt.Println("\nWhat would you like to ask? (type 'exit' to quit)")
			fmt.Print("> ")
			if !reader.Scan() {
				break
			}
			question := strings.TrimSpace(reader.Text())
			switch strings.ToLower(question) {
			case "exit", "quit", "bye":
				fmt.Println("Session ended")
				return nil
			case "":
				continue
			}

			answer, err := expert.Ask(cmd.Context(), question)
			if err != nil {
				fmt.Println("Failed to get a response")
				continue
			}
			fmt.Println("\n--- RESPONSE FROM AI EXPERT ---")
			fmt.Println(answer)
			fmt.Println("-------------------------------------")
		}
		fmt.Println("Session ended")
		return nil
	},
}
