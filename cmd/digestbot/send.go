package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/usecase"
	"github.com/devricklin/feishu-digest-bot/internal/data"
	"github.com/devricklin/feishu-digest-bot/internal/infra/feishu"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Deliver a saved snapshot through the configured sink",
	RunE:  runSend,
}

var (
	sendSnapshot string
	sendTest     bool
)

func init() {
	sendCmd.Flags().StringVarP(&sendSnapshot, "snapshot", "s", "", "Snapshot file written by a previous digest")
	sendCmd.Flags().BoolVar(&sendTest, "test", false, "Send to TEST_RECIPIENT_EMAIL instead of RECIPIENT_EMAIL")
	sendCmd.MarkFlagRequired("snapshot")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	snap, err := data.NewSnapshotRepo(cfg.Storage.SnapshotDir).Load(ctx, sendSnapshot)
	if err != nil {
		return err
	}

	var feishuClient *feishu.Client
	if cfg.Delivery.Sink == data.SinkFeishu && cfg.ValidateCapture() == nil {
		feishuClient = feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
	}
	sink, err := data.NewDeliverySink(cfg.ToSinkConfig(sendTest), feishuClient)
	if err != nil {
		return err
	}

	// Resending never writes a new snapshot
	opts := reportOptions(cfg, newSummarizer(cfg))
	digestUC := usecase.NewDigestUsecase(storeFromSnapshot(snap), sink, nil, nil, cfg.ToDigestConfig(opts))

	result := digestUC.Run(ctx)
	if result.Status == domain.DigestStatusSkipped {
		fmt.Fprintln(cmd.OutOrStdout(), "Snapshot is empty, nothing sent")
		return nil
	}
	if !result.Succeeded() {
		return fmt.Errorf("send %s (%s): %s", result.Status, result.Kind, result.Error)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %d messages via %s\n", result.MessageCount, result.Sink)
	return nil
}
