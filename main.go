package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-digest/internal/db"
	"github.com/dtnitsch/news-digest/internal/digest"
	"github.com/dtnitsch/news-digest/internal/pages"
)

func main() {
	app := &cli.App{
		Name:  "news-digest",
		Usage: "Turn summarized news topics into a cited, ranked and change-tracked digest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file (DIGEST_* environment variables override it)",
				EnvVars: []string{"DIGEST_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug detail",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "pages",
				Usage:     "Parse saved HTML pages for a topic, triage them and drop near-duplicates",
				ArgsUsage: "<file.html[=url] | dir> ...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Usage: "Topic name", Required: true},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (default <output-dir>/pages-<topic>.json)"},
					&cli.StringFlag{Name: "format", Value: "json", Usage: "Output format: json or yaml"},
					&cli.StringFlag{Name: "output-dir", Usage: "Directory for outputs"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent parse workers"},
					&cli.Float64Flag{Name: "dedup-threshold", Usage: "Similarity at or above which a page is a near-duplicate"},
					&cli.IntFlag{Name: "min-domains", Usage: "Distinct domains to aim for during triage"},
					&cli.StringFlag{Name: "timezone", Usage: "IANA zone for dates without one"},
				},
				Action: pages.PagesAction,
			},
			{
				Name:  "digest",
				Usage: "Annotate summarized topics, detect story changes and write the digest",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Raw digest document (JSON or YAML)"},
					&cli.StringFlag{Name: "topics", Usage: "Comma-separated topic names to process (default all)"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (default <output-dir>/digest-<date>.json)"},
					&cli.StringFlag{Name: "format", Value: "json", Usage: "Output format: json or yaml"},
					&cli.StringFlag{Name: "output-dir", Usage: "Directory for outputs"},
					&cli.StringFlag{Name: "store", Usage: "Snapshot store: sqlite or file"},
					&cli.StringFlag{Name: "store-path", Usage: "SQLite database file or snapshot directory"},
					&cli.DurationFlag{Name: "store-ttl", Usage: "Ignore snapshots older than this, e.g. 720h (0 keeps them forever)"},
					&cli.StringFlag{Name: "timezone", Usage: "IANA zone for the digest timestamp"},
					&cli.IntFlag{Name: "at-a-glance", Usage: "Items per topic in the at-a-glance list"},
					&cli.IntFlag{Name: "executive", Usage: "Items in the executive summary"},
				},
				Action: digest.DigestAction,
			},
			{
				Name:  "snapshots",
				Usage: "List stored story snapshots",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "store-path", Usage: "SQLite database file"},
					&cli.StringFlag{Name: "topic", Usage: "Only this topic"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum rows (0 for all)"},
				},
				Action: db.SnapshotsAction,
				Subcommands: []*cli.Command{
					{
						Name:  "clear",
						Usage: "Delete stored snapshots so stories are reported as new again",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "store-path", Usage: "SQLite database file"},
							&cli.StringFlag{Name: "topic", Usage: "Topic to clear"},
							&cli.BoolFlag{Name: "all", Usage: "Clear every topic"},
						},
						Action: db.ClearSnapshotsAction,
					},
				},
			},
			{
				Name:  "runs",
				Usage: "List recorded digest runs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "store-path", Usage: "SQLite database file"},
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum rows (0 for all)"},
				},
				Action: db.RunsAction,
				Subcommands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "Show a run and its story changes (latest when no ID is given)",
						ArgsUsage: "[run-id]",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "store-path", Usage: "SQLite database file"},
						},
						Action: db.RunAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
