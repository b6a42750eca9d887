package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
	"github.com/devricklin/feishu-digest-bot/internal/biz/usecase"
	"github.com/devricklin/feishu-digest-bot/internal/conf"
	"github.com/devricklin/feishu-digest-bot/internal/data"
	"github.com/devricklin/feishu-digest-bot/internal/infra/moonshot"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "digestbot",
	Short: "Collects Feishu group messages and delivers a daily digest",
	Long: "digestbot listens to Feishu group chats, keeps the messages in memory and " +
		"delivers one categorized report per day by email or Feishu.",
	SilenceUsage: true,
	// serve is the default command
	RunE: runServe,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
}

// loadConfig loads .env and the environment
func loadConfig() (*conf.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newSummarizer returns the Moonshot summarizer, disabled when no API key is set
func newSummarizer(cfg *conf.Config) repo.SummarizerRepo {
	var client *moonshot.Client
	if cfg.Moonshot.APIKey != "" {
		client = moonshot.NewClient(cfg.Moonshot.APIKey, cfg.Moonshot.Model, "")
		fmt.Println("[Digest] Moonshot channel summaries enabled")
	}
	return data.NewMoonshotRepo(client, cfg.Report.SummaryPrompt)
}

// reportOptions builds the report options with the LLM condenser when configured
func reportOptions(cfg *conf.Config, summarizer repo.SummarizerRepo) usecase.ReportOptions {
	opts := cfg.ToReportOptions(nil)
	opts.Condenser = usecase.NewLLMCondenser(summarizer, usecase.NewCondenser(opts.Labels, opts.Noise))
	return opts
}

// storeFromSnapshot loads a saved snapshot into a fresh message store
func storeFromSnapshot(snap *domain.Snapshot) *domain.MessageStore {
	store := domain.NewMessageStore()
	for _, category := range domain.Categories {
		for _, channel := range snap.ChannelNames(category) {
			for _, msg := range snap.Messages(category, channel) {
				store.Append(category, channel, msg)
			}
		}
	}
	return store
}
