package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devricklin/feishu-digest-bot/internal/biz/usecase"
	"github.com/devricklin/feishu-digest-bot/internal/data"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render a saved snapshot to stdout",
	RunE:  runPreview,
}

var previewSnapshot string

func init() {
	previewCmd.Flags().StringVarP(&previewSnapshot, "snapshot", "s", "", "Snapshot file written by a previous digest")
	previewCmd.MarkFlagRequired("snapshot")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, err := data.NewSnapshotRepo(cfg.Storage.SnapshotDir).Load(context.Background(), previewSnapshot)
	if err != nil {
		return err
	}

	opts := reportOptions(cfg, newSummarizer(cfg))
	fmt.Fprintln(cmd.OutOrStdout(), usecase.BuildReport(snap, opts))
	return nil
}
