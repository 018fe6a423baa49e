package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aces-go/aces/internal/lock"
	"github.com/aces-go/aces/internal/obslog"
)

func newShardCmd() *cobra.Command {
	var configPath, predicatesGlob, outputDir string
	var parallelism int
	cmd := &cobra.Command{
		Use:   "shard",
		Short: "run independent extraction shards over a set of predicate table files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShard(cmd.Context(), configPath, predicatesGlob, outputDir, parallelism)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "task specification YAML path")
	cmd.Flags().StringVar(&predicatesGlob, "predicates-glob", "", "glob matching one predicate table file per shard")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory to write one result file per shard into")
	cmd.Flags().IntVar(&parallelism, "parallelism", 8, "maximum number of shards running concurrently")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("predicates-glob")
	cmd.MarkFlagRequired("output-dir")
	return cmd
}

// runShard fans shards out with a bounded errgroup, one independent engine
// instance per matched input file, each guarded by its own internal/lock
// file so two workers never race on the same output path.
func runShard(ctx context.Context, configPath, predicatesGlob, outputDir string, parallelism int) error {
	log := obslog.From(ctx)
	matches, err := filepath.Glob(predicatesGlob)
	if err != nil {
		return err
	}
	log.WithField("shards", len(matches)).Info("shard fan-out starting")

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for _, input := range matches {
		input := input
		eg.Go(func() error {
			return runShardOne(egctx, configPath, input, outputDir)
		})
	}
	return eg.Wait()
}

func runShardOne(ctx context.Context, configPath, input, outputDir string) error {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	outputPath := filepath.Join(outputDir, base+".result.parquet")
	lockPath := filepath.Join(outputDir, base+".lock")

	l, err := lock.Acquire(lockPath)
	if err != nil {
		return err
	}
	defer l.Release()

	return runExtract(ctx, configPath, input, outputPath)
}
