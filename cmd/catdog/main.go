package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/catdog/internal"
	pkgconfig "github.com/starford/catdog/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func annotate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("input") {
		cfg.Session.Input = cmd.String("input")
	}
	if cmd.IsSet("output") {
		cfg.Session.Ledger = cmd.String("output")
	}
	if cmd.IsSet("presenter") {
		cfg.Session.Presenter = cmd.String("presenter")
	}
	return internal.Annotate(ctx, internal.WithConfig(cfg))
}

func prep(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("input") {
		cfg.Session.Ledger = cmd.String("input")
	}
	if cmd.IsSet("seed") {
		cfg.Dataset.Seed = cmd.Uint("seed")
	}
	if cmd.IsSet("output-dir") {
		cfg.Dataset.OutputDir = cmd.String("output-dir")
	}
	req := internal.PrepRequest{
		Stats:    cmd.Bool("stats"),
		JSONPath: cmd.String("json"),
		Split:    cmd.Bool("split"),
		Report:   cmd.Bool("report"),
	}
	if !req.Stats && req.JSONPath == "" && !req.Split && !req.Report {
		return fmt.Errorf("nothing to do: pass at least one of --stats, --json, --split, --report")
	}
	return internal.Prep(ctx, req, internal.WithConfig(cfg))
}

func verify(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Verify(ctx, cmd.Bool("repair"), internal.WithConfig(cfg))
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, version, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:    "catdog",
		Usage:   "Label images as cat or dog and prepare the labeled dataset",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("CATDOG_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "annotate",
				Usage:  "Run an interactive labeling session",
				Action: annotate,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Directory of images to label"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Ledger CSV file"},
					&cli.StringFlag{Name: "presenter", Usage: "Presentation surface: terminal or http"},
				},
			},
			{
				Name:   "prep",
				Usage:  "Compute statistics, exports and splits from the ledger",
				Action: prep,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Ledger CSV file"},
					&cli.BoolFlag{Name: "stats", Usage: "Print label statistics"},
					&cli.StringFlag{Name: "json", Usage: "Write a structured JSON export to this path"},
					&cli.BoolFlag{Name: "split", Usage: "Write train/val/test CSV splits"},
					&cli.BoolFlag{Name: "report", Usage: "Write the annotation report"},
					&cli.UintFlag{Name: "seed", Usage: "Shuffle seed for --split (0 picks a random seed)"},
					&cli.StringFlag{Name: "output-dir", Usage: "Directory for split CSV files"},
				},
			},
			{
				Name:   "verify",
				Usage:  "Check that the buckets agree with the ledger",
				Action: verify,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "repair", Usage: "Fix every issue found"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve read-only ledger tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if internal.IsPrecondition(err) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
