package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ProducerMatt/stampy-chat/client"
	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/logger"
	"github.com/ProducerMatt/stampy-chat/render"
	"github.com/ProducerMatt/stampy-chat/tui"
)

func searchCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the corpus, one-shot or interactively",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "lexical",
				Usage: "Use full-text search instead of semantic search",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results to print",
				Value: 10,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))

			if query == "" {
				// No query opens the interactive page. Log lines would tear
				// the drawing, so they are discarded.
				log := logger.NewWithWriter(io.Discard)
				apiClient := client.New(cfg.GetAPIBase(), log)

				return tui.Run(client.NewController(apiClient, log), log)
			}

			apiClient := client.New(cfg.GetAPIBase(), logger.New())

			if c.Bool("lexical") {
				return printLexicalResults(ctx, apiClient, query, c.Int("limit"))
			}

			return printSemanticResults(ctx, apiClient, query, c.Int("limit"))
		},
	}
}

func printSemanticResults(ctx context.Context, apiClient *client.Client, query string, limit int) error {
	var entries []client.ResultEntry
	ui := client.UIState{
		SetQueryText: func(string) {},
		SetLoading:   func(bool) {},
		SetResults:   func(results []client.ResultEntry) { entries = results },
	}

	controller := client.NewController(apiClient, logger.New())
	if err := controller.Submit(ctx, query, ui); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	if len(entries) == 0 {
		fmt.Println("No results found")
		return nil
	}

	for i, entry := range entries {
		fmt.Printf("%d. %s\n", i+1, render.EntryText(entry, 0))
	}
	fmt.Printf("Total: %d results\n", len(entries))

	return nil
}

func printLexicalResults(ctx context.Context, apiClient *client.Client, query string, limit int) error {
	results, pageDetails, err := apiClient.Lexical(ctx, query, limit, 1)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}

	for i, result := range results {
		entry := client.ResultEntry{
			Title:  result.Title,
			Author: result.Author,
			Date:   result.Date,
			URL:    result.URL,
			Tags:   result.Tags,
			Text:   result.Text,
		}
		fmt.Printf("%d. %s\n", i+1, render.EntryText(entry, 0))
	}
	fmt.Printf("Total: %d results\n", pageDetails.TotalResults)

	return nil
}
