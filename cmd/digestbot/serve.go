package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devricklin/feishu-digest-bot/internal/api"
	"github.com/devricklin/feishu-digest-bot/internal/biz"
	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/data"
	"github.com/devricklin/feishu-digest-bot/internal/infra/feishu"
	"github.com/devricklin/feishu-digest-bot/internal/infra/moonshot"
	"github.com/devricklin/feishu-digest-bot/internal/server"
	"github.com/devricklin/feishu-digest-bot/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Capture messages, run the daily digest and serve the admin API",
	RunE:  runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Admin API port (overrides API_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateCapture(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if servePort > 0 {
		cfg.APIPort = servePort
	}

	// Initialize clients
	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)

	var moonshotClient *moonshot.Client
	if cfg.Moonshot.APIKey != "" {
		moonshotClient = moonshot.NewClient(cfg.Moonshot.APIKey, cfg.Moonshot.Model, "")
		fmt.Println("[Digest] Moonshot channel summaries enabled")
	}

	// Initialize repository layer
	repos, err := data.NewRepositories(cfg.Storage.DBPath, cfg.Storage.SnapshotDir, moonshotClient, cfg.Report.SummaryPrompt)
	if err != nil {
		return fmt.Errorf("creating repositories: %w", err)
	}
	defer repos.Close()
	fmt.Printf("[Digest] Database: %s\n", cfg.Storage.DBPath)

	sink, err := data.NewDeliverySink(cfg.ToSinkConfig(false), feishuClient)
	if err != nil {
		return err
	}
	if err := sink.Validate(); err != nil {
		// Not fatal: capture keeps running and every digest reports the missing settings
		fmt.Printf("[Digest] Warning: %s sink not ready: %v\n", sink.Name(), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize usecase layer
	store := domain.NewMessageStore()
	opts := reportOptions(cfg, repos.Summarizer)
	ucs := biz.NewUsecases(store, biz.Repos{
		Channel:  repos.Channel,
		Run:      repos.Run,
		Snapshot: repos.Snapshot,
		Sink:     sink,
	}, cfg.ToDigestConfig(opts), cfg.Debug)
	if err := ucs.Channel.Seed(ctx, cfg.Channels.Important, cfg.Channels.Excluded); err != nil {
		return fmt.Errorf("seeding channel lists: %w", err)
	}

	// Initialize service layer
	scheduler := service.NewDailyScheduler(ucs.Digest, cfg.Digest.Hour, cfg.Digest.Minute, cfg.Location())
	scheduler.Start(ctx)

	apiServer := api.NewServer(ucs.Digest, ucs.Channel, cfg.APIPort)
	go func() {
		if err := apiServer.Start(); err != nil {
			fmt.Printf("[Digest] API server error: %v\n", err)
		}
	}()

	srv := server.NewFeishuServer(feishuClient, feishuClient, ucs.Capture, cfg.Debug)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		srv.Stop()
		apiServer.Stop()
		cancel()
		scheduler.Stop()
		if n := store.Len(); n > 0 {
			fmt.Printf("[Digest] %d undelivered messages dropped at shutdown\n", n)
		}
		repos.Close()
		// The Feishu websocket client does not return from Start
		os.Exit(0)
	}()

	if cfg.Digest.BackfillLimit > 0 {
		if _, err := srv.Backfill(ctx, feishuClient, cfg.Digest.BackfillLimit); err != nil {
			fmt.Printf("[Digest] Warning: history backfill failed: %v\n", err)
		}
	}

	fmt.Println("Starting Feishu digest bot...")
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		scheduler.Stop()
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
