// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/wayfarer"
	"github.com/poiesic/wayfarer/chat"
	"github.com/poiesic/wayfarer/config"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/ingestion"
	"github.com/urfave/cli/v2"
)

var (
	errNoQuestion    = errors.New("a question is required")
	errNoSQLiteCache = errors.New("cache maintenance requires the sqlite cache backend")
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "wayfarer",
		Usage: "Hybrid retrieval travel assistant over a vector index and a knowledge graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   config.DefaultPath,
				EnvVars: []string{"WAYFARER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Action: chatCommand,
		Commands: []*cli.Command{
			{
				Name:   "chat",
				Usage:  "Start an interactive question session",
				Action: chatCommand,
			},
			{
				Name:      "ask",
				Usage:     "Answer a single question and exit",
				ArgsUsage: "QUESTION...",
				Action:    askCommand,
			},
			{
				Name:   "seed",
				Usage:  "Load a dataset into the vector index and the graph store",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dataset",
						Aliases:  []string{"d"},
						Usage:    "Path to the JSON dataset file",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of nodes to embed per request",
						Value: ingestion.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N nodes",
						Value: 10,
					},
				},
			},
			{
				Name:  "cache",
				Usage: "Inspect or maintain the SQLite cache",
				Subcommands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "Print cache entry counts",
						Action: cacheStatsCommand,
					},
					{
						Name:   "purge",
						Usage:  "Delete expired cache entries",
						Action: cachePurgeCommand,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Logs go to stderr so they never interleave with answers on stdout.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// openRuntime loads the configuration and opens every subsystem.
func openRuntime(ctx context.Context, c *cli.Context) (*wayfarer.Runtime, error) {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return nil, err
	}
	return wayfarer.Open(ctx, cfg)
}

func newREPL(rt *wayfarer.Runtime, c *cli.Context) (*chat.REPL, error) {
	session, err := rt.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	repl := chat.NewREPL(session, c.App.Reader, c.App.Writer)
	if title := rt.Config().Assistant.Title; title != "" {
		repl.Title = title
	}
	return repl, nil
}

func chatCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, c)
	if err != nil {
		return err
	}
	defer rt.Close()

	repl, err := newREPL(rt, c)
	if err != nil {
		return err
	}
	return repl.Run(ctx)
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errNoQuestion
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, c)
	if err != nil {
		return err
	}
	defer rt.Close()

	repl, err := newREPL(rt, c)
	if err != nil {
		return err
	}
	if result := repl.Once(ctx, question); result.State == core.StateFailed {
		return fmt.Errorf("question failed: %w", result.Err)
	}
	return nil
}

func seedCommand(c *cli.Context) error {
	nodes, err := ingestion.LoadDatasetFile(c.String("dataset"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, c)
	if err != nil {
		return err
	}
	defer rt.Close()

	seeder, err := rt.NewSeeder(
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithProgress(c.App.ErrWriter, c.Int("report-interval")),
	)
	if err != nil {
		return fmt.Errorf("failed to create seeder: %w", err)
	}

	report, err := seeder.Seed(ctx, nodes)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Seeded %d nodes (%d skipped): %d vectors, %d entities, %d links\n",
		report.Nodes, report.Skipped, report.Vectors, report.Entities, report.Links)
	return nil
}

func cacheStatsCommand(c *cli.Context) error {
	rt, err := openRuntime(c.Context, c)
	if err != nil {
		return err
	}
	defer rt.Close()

	store, ok := rt.SQLiteCache()
	if !ok {
		return errNoSQLiteCache
	}
	stats, err := store.Stats(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Entries: %d\nExpired: %d\n", stats.Entries, stats.Expired)
	return nil
}

func cachePurgeCommand(c *cli.Context) error {
	rt, err := openRuntime(c.Context, c)
	if err != nil {
		return err
	}
	defer rt.Close()

	store, ok := rt.SQLiteCache()
	if !ok {
		return errNoSQLiteCache
	}
	n, err := store.PurgeExpired(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Purged %d expired entries\n", n)
	return nil
}
