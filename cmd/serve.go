package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/ProducerMatt/stampy-chat/api"
	"github.com/ProducerMatt/stampy-chat/config"
)

func serveCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the search API server",
		Action: func(ctx context.Context, _ *cli.Command) error {
			return api.Run(ctx, cfg)
		},
	}
}
