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
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/groundwork"
	"github.com/poiesic/groundwork/config"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/query"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

const askPrompt = "What do you want to know?"

// openWorkspace is replaced in tests to avoid the network.
var openWorkspace = func(cfg *config.Config) (*groundwork.Workspace, error) {
	return groundwork.Open(cfg)
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "groundwork",
		Usage: "Answer questions from a local directory of PDF documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or TOML config file (default: ./groundwork.yaml if present)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Override the configured collection name",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Load, split and embed every PDF of a directory",
				ArgsUsage: "[dir]",
				Action:    ingestCommand,
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the ingested documents",
				ArgsUsage: "[question]",
				Action:    askCommand,
			},
			{
				Name:   "sources",
				Usage:  "List ingested sources with their current and stale chunk counts",
				Action: sourcesCommand,
			},
			{
				Name:   "purge",
				Usage:  "Delete stale chunks and chunks of removed sources",
				Action: purgeCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Only report what would be deleted",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed every chunk with the configured embedding model",
				Action: reembedCommand,
			},
			{
				Name:      "init",
				Usage:     "Write the default configuration to a file",
				ArgsUsage: "[path]",
				Action:    initCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if name := c.String("collection"); name != "" {
		cfg.Collection = name
	}
	return cfg, nil
}

func withWorkspace(c *cli.Context, fn func(ws *groundwork.Workspace) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ws, err := openWorkspace(cfg)
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}
	defer ws.Close()
	return fn(ws)
}

func ingestCommand(c *cli.Context) error {
	return withWorkspace(c, func(ws *groundwork.Workspace) error {
		report, err := ws.Ingest(c.Context, c.Args().First())
		if err != nil {
			return err
		}

		out := c.App.Writer
		fmt.Fprintf(out, "Ingested %d sources (%d pages, %d chunks) into %s in %v\n",
			report.Sources, report.Documents, report.Chunks, report.Collection, report.Duration.Round(time.Millisecond))
		if report.Stale > 0 {
			fmt.Fprintf(out, "%d stale chunks remain; run purge to delete them\n", report.Stale)
		}
		for _, failure := range report.Failures {
			fmt.Fprintf(out, "skipped %s: %v\n", failure.Source, failure.Err)
		}
		return nil
	})
}

func askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if question == "" {
		var err error
		question, err = readQuestion(c.App.Reader, c.App.Writer)
		if err != nil {
			return err
		}
	}

	return withWorkspace(c, func(ws *groundwork.Workspace) error {
		pipeline, err := ws.NewQueryPipeline(c.Context)
		if err != nil {
			return err
		}
		answer, err := pipeline.AskWithMonitor(c.Context, question, &chunkPrinter{out: c.App.Writer})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, answer.Text)
		return nil
	})
}

// readQuestion reads one line from in. The prompt is shown only when in is a terminal.
func readQuestion(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, askPrompt+" ")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// chunkPrinter prints the retrieved chunk texts before the answer.
type chunkPrinter struct {
	out io.Writer
}

var _ query.Monitor = (*chunkPrinter)(nil)

func (p *chunkPrinter) Start(_ string) {}

func (p *chunkPrinter) AfterRetrieval(results []core.QueryResult) {
	for _, result := range results {
		fmt.Fprintln(p.out, result.Text)
	}
}

func (p *chunkPrinter) AfterPrompt(_ *query.Prompt) {}

func (p *chunkPrinter) Finish(_ *query.Answer) {}

func sourcesCommand(c *cli.Context) error {
	return withWorkspace(c, func(ws *groundwork.Workspace) error {
		summaries, err := ws.Sources(c.Context)
		if err != nil {
			return err
		}
		out := c.App.Writer
		if len(summaries) == 0 {
			fmt.Fprintf(out, "No sources in collection %s\n", ws.Config().Collection)
			return nil
		}
		for _, s := range summaries {
			fmt.Fprintf(out, "%s\tcurrent=%d\tstale=%d\tupdated=%s\n",
				s.Source, s.Current, s.Stale, s.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	})
}

func purgeCommand(c *cli.Context) error {
	return withWorkspace(c, func(ws *groundwork.Workspace) error {
		report, err := ws.Purge(c.Context, c.Bool("dry-run"))
		if err != nil {
			return err
		}
		out := c.App.Writer
		for _, s := range report.Sources {
			state := "stale"
			if s.Removed {
				state = "removed"
			}
			fmt.Fprintf(out, "%s\t%s\t%d chunks\n", s.Source, state, len(s.IDs))
		}
		if report.DryRun {
			fmt.Fprintf(out, "Dry run: nothing deleted from %s\n", report.Collection)
			return nil
		}
		fmt.Fprintf(out, "Deleted %d chunks from %s\n", report.Deleted, report.Collection)
		return nil
	})
}

func reembedCommand(c *cli.Context) error {
	return withWorkspace(c, func(ws *groundwork.Workspace) error {
		cfg := ws.Config()
		fmt.Fprintf(c.App.ErrWriter, "Collection: %s\n", cfg.Collection)
		fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.Embedding.Host)
		fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.Embedding.Model)
		fmt.Fprintln(c.App.ErrWriter)

		reembedder, err := ws.NewReembedder(c.Context, c.App.ErrWriter)
		if err != nil {
			return err
		}
		if _, err := reembedder.Run(c.Context); err != nil {
			return fmt.Errorf("reembedding failed: %w", err)
		}
		return nil
	})
}

func initCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = config.DefaultFiles[0]
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
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

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
