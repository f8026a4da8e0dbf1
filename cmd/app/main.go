package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tickler/internal"
	"github.com/starford/tickler/internal/review"
	pkgconfig "github.com/starford/tickler/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func scheduleReview(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	printNotice := review.NotifierFunc(func(_ context.Context, n review.Notice) {
		out := os.Stdout
		if n.Kind == review.NoticeRejected {
			out = os.Stderr
		}
		fmt.Fprintln(out, n.Message)
	})

	_, err = internal.ScheduleReview(ctx, review.Request{
		SourcePath: cmd.String("note"),
		DateText:   strings.TrimSpace(strings.Join(append([]string{cmd.String("date")}, cmd.Args().Slice()...), " ")),
		Line:       int(cmd.Int("line")),
		LineText:   cmd.String("line-text"),
	},
		internal.WithConfig(cfg),
		internal.WithNotifier(printNotice),
		internal.WithLogOutput(os.Stderr),
	)
	return err
}

func resolveDate(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	target, err := internal.ResolveDate(strings.Join(cmd.Args().Slice(), " "),
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(target)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithVersion(version),
	)
}

func main() {
	cmd := &cli.Command{
		Name:    "tickler",
		Usage:   "Schedule Markdown notes for review in date-named daily notes",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides vault.path)",
				Sources: cli.EnvVars("TICKLER_VAULT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream and vault watcher",
				Action: serve,
			},
			{
				Name:      "review",
				Usage:     "Add a note (or one of its lines) to the review section of a daily note",
				ArgsUsage: "[date words...]",
				Action:    scheduleReview,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "note", Aliases: []string{"n"}, Usage: "Vault-relative path of the note", Required: true},
					&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Review date, e.g. 'in two weeks' (default from config)"},
					&cli.IntFlag{Name: "line", Aliases: []string{"l"}, Usage: "1-based line to review as a block"},
					&cli.StringFlag{Name: "line-text", Usage: "Text of the line to review as a block"},
				},
			},
			{
				Name:      "resolve-date",
				Usage:     "Print the daily note key a date phrase resolves to",
				ArgsUsage: "<date words...>",
				Action:    resolveDate,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
