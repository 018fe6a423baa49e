package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/engine"
	"github.com/aces-go/aces/internal/obslog"
	"github.com/aces-go/aces/internal/source/parquet"
	"github.com/aces-go/aces/internal/taskspec"
)

func newExtractCmd() *cobra.Command {
	var configPath, predicatesPath, outputPath string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "run one shard's extraction against a single predicate table file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), configPath, predicatesPath, outputPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "task specification YAML path")
	cmd.Flags().StringVar(&predicatesPath, "predicates", "", "predicate table parquet path")
	cmd.Flags().StringVar(&outputPath, "output", "", "result table parquet path")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("predicates")
	cmd.MarkFlagRequired("output")
	return cmd
}

func runExtract(ctx context.Context, configPath, predicatesPath, outputPath string) error {
	log := obslog.From(ctx)
	task, err := loadTask(ctx, configPath)
	if err != nil {
		return err
	}

	src := &parquet.Source{Path: predicatesPath}
	frame, err := src.ReadPredicateTable(ctx)
	if err != nil {
		return err
	}
	if err := frame.Validate(); err != nil {
		return err
	}
	log.WithField("rows", frame.Len()).Debug("loaded predicate table")

	rows, err := engine.New(frame, task).Extract(ctx)
	if err != nil {
		return err
	}
	log.WithField("rows", len(rows)).Info("extraction complete")

	result := engine.Assemble(rows)
	sink := &parquet.Source{Path: outputPath}
	return sink.WriteResultTable(ctx, result)
}

func loadTask(ctx context.Context, configPath string) (*taskspec.Task, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, acerr.Wrap(acerr.ConfigInvalid, configPath, err)
	}
	return taskspec.LoadConfig(ctx, data)
}
