package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/app"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/config"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func newApp(ctx context.Context, cmd *cli.Command, logFormat string) (*app.App, error) {
	cfg, err := config.Load(cmd.Args().Slice())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return app.New(ctx, cfg, logging.New(os.Stderr, logFormat, cfg.LogLevel))
}

func serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, "json")
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Serve(ctx)
}

func shell(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd, "text")
	if err != nil {
		return err
	}
	defer a.Close()

	a.Shell(ctx, os.Stdin, os.Stdout)
	return nil
}

const flagsHelp = `flags: -c FILE  -a ADDR  -s sqlite|pgx|memory  -d DSN  -r none|pinata|s3|ipfs|memory  -t SECONDS  -l LEVEL`

func main() {
	cmd := &cli.Command{
		Name:  "filemanager",
		Usage: "Encrypted file manager with remote backups",
		Commands: []*cli.Command{
			{
				Name:            "serve",
				Usage:           "run the REST API",
				UsageText:       "filemanager serve [" + flagsHelp + "]",
				SkipFlagParsing: true,
				Action:          serve,
			},
			{
				Name:            "shell",
				Usage:           "run the interactive shell",
				UsageText:       "filemanager shell [" + flagsHelp + "]",
				SkipFlagParsing: true,
				Action:          shell,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
