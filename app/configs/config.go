package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Slack     SlackConfig
	Tracker   TrackerConfig
	OpenAI    OpenAIConfig
	Assistant AssistantConfig
}

type SlackConfig struct {
	BotToken   string
	AppToken   string
	ListenPort int
}

type TrackerConfig struct {
	Token          string
	ProjectID      string
	HTTPTimeoutSec int
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type AssistantConfig struct {
	Name          string
	KnowledgeFile string
}

// Load reads configuration from the given dotenv file (optional) and the
// process environment. The environment wins over the file. A missing env
// file is not an error; missing required values are.
func Load(envFile string) (Config, error) {
	v := viper.New()
	if strings.TrimSpace(envFile) != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}
	v.AutomaticEnv()

	cfg := Config{
		Slack: SlackConfig{
			BotToken:   v.GetString("SLACK_BOT_TOKEN"),
			AppToken:   v.GetString("SLACK_APP_TOKEN"),
			ListenPort: v.GetInt("LISTEN_PORT"),
		},
		Tracker: TrackerConfig{
			Token:          v.GetString("ASANA_TOKEN"),
			ProjectID:      v.GetString("ASANA_PROJECT_ID"),
			HTTPTimeoutSec: v.GetInt("HTTP_TIMEOUT_SEC"),
		},
		OpenAI: OpenAIConfig{
			APIKey: v.GetString("OPENAI_API_KEY"),
			Model:  v.GetString("OPENAI_MODEL"),
		},
		Assistant: AssistantConfig{
			Name:          v.GetString("ASSISTANT_NAME"),
			KnowledgeFile: v.GetString("KNOWLEDGE_FILE"),
		},
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing required value in a single diagnostic.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Slack.BotToken) == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if strings.TrimSpace(c.Slack.AppToken) == "" {
		missing = append(missing, "SLACK_APP_TOKEN")
	}
	if strings.TrimSpace(c.Tracker.Token) == "" {
		missing = append(missing, "ASANA_TOKEN")
	}
	if strings.TrimSpace(c.Tracker.ProjectID) == "" {
		missing = append(missing, "ASANA_PROJECT_ID")
	}
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Assistant.Name) == "" {
		cfg.Assistant.Name = "AI Assistant"
	}
	if strings.TrimSpace(cfg.Assistant.KnowledgeFile) == "" {
		cfg.Assistant.KnowledgeFile = "Path.txt"
	}
	if strings.TrimSpace(cfg.OpenAI.Model) == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.Slack.ListenPort <= 0 || cfg.Slack.ListenPort > 65535 {
		cfg.Slack.ListenPort = 8091
	}
	if cfg.Tracker.HTTPTimeoutSec <= 0 {
		cfg.Tracker.HTTPTimeoutSec = 30
	}
}
