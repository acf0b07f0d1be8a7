package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/ProducerMatt/stampy-chat/config"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %s\n", err)
		os.Exit(1)
	}

	app := &cli.Command{
		Name:  "stampy-chat",
		Usage: "Semantic search over an AI alignment corpus",
		Commands: []*cli.Command{
			serveCommand(cfg),
			searchCommand(cfg),
			ingestCommand(cfg),
			statsCommand(cfg),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
