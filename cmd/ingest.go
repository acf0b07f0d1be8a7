package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/ProducerMatt/stampy-chat/client"
	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/logger"
)

const ingestPollInterval = 500 * time.Millisecond

func ingestCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Load a JSONL corpus dump into the search stores",
		ArgsUsage: "<corpus.jsonl>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "source",
				Usage: "Only ingest articles from this source (repeatable)",
			},
			&cli.FloatFlag{
				Name:  "sample",
				Usage: "Ingest a random fraction of articles, between 0 and 1",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one corpus path argument")
			}

			// The server validates paths, not the CLI, but it needs an
			// absolute one to do so.
			path, err := filepath.Abs(c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to resolve corpus path: %w", err)
			}

			apiClient := client.New(cfg.GetAPIBase(), logger.New())

			requestID, err := apiClient.StartIngest(ctx, client.IngestRequest{
				Path:           path,
				Sources:        c.StringSlice("source"),
				SampleFraction: c.Float("sample"),
			})
			if err != nil {
				return fmt.Errorf("failed to start ingestion: %w", err)
			}

			fmt.Printf("Ingestion started: %s\n", requestID)

			return waitForIngest(ctx, apiClient, requestID)
		},
	}
}

func waitForIngest(ctx context.Context, apiClient *client.Client, requestID string) error {
	lastProgress := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ingestPollInterval):
		}

		progress, err := apiClient.IngestProgress(ctx, requestID)
		if err != nil {
			return fmt.Errorf("failed to fetch ingestion progress: %w", err)
		}

		switch {
		case progress < 0:
			return fmt.Errorf("ingestion %s failed, check the server logs", requestID)
		case progress >= 100:
			fmt.Println("Ingestion complete")
			return nil
		case progress != lastProgress:
			fmt.Printf("Progress: %d%%\n", progress)
			lastProgress = progress
		}
	}
}
