package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/ProducerMatt/stampy-chat/client"
	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/logger"
)

func statsCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show corpus statistics from the last ingestion run",
		Action: func(ctx context.Context, _ *cli.Command) error {
			apiClient := client.New(cfg.GetAPIBase(), logger.New())

			stats, err := apiClient.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch stats: %w", err)
			}

			printStats(stats)

			return nil
		},
	}
}

func printStats(stats client.CorpusStats) {
	fmt.Println("Corpus statistics")
	fmt.Println("=================")
	fmt.Printf("Articles:      %d\n", stats.Articles)
	fmt.Printf("Blocks:        %d\n", stats.Blocks)
	fmt.Printf("Characters:    %d\n", stats.Chars)
	fmt.Printf("Words:         %d\n", stats.Words)
	fmt.Printf("Sentences:     %d\n", stats.Sentences)
	fmt.Printf("Stored blocks: %d\n", stats.StoredBlocks)
	fmt.Printf("Lexical docs:  %d\n", stats.LexicalDocs)

	if len(stats.ArticlesBySource) > 0 {
		fmt.Println("\nArticles by source:")
		for _, source := range sortedKeys(stats.ArticlesBySource) {
			fmt.Printf("  %s: %d\n", source, stats.ArticlesBySource[source])
		}
	}

	if len(stats.SkippedByReason) > 0 {
		fmt.Println("\nSkipped articles:")
		for _, reason := range sortedKeys(stats.SkippedByReason) {
			fmt.Printf("  %s: %d\n", reason, stats.SkippedByReason[reason])
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}
