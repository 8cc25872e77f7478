package db

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-digest/internal/common"
	dbpkg "github.com/dtnitsch/news-digest/pkg/db"
)

func openDatabase(c *cli.Context) (*dbpkg.DB, error) {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	database, err := dbpkg.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// SnapshotsAction lists stored story snapshots, newest first.
func SnapshotsAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	snapshots, err := database.ListSnapshots(c.Context, c.String("topic"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots found")
		return nil
	}

	fmt.Printf("%-20s %-20s %-8s %-40s\n", "Updated", "Topic", "Bytes", "Headline")
	fmt.Println(strings.Repeat("-", 100))
	for _, s := range snapshots {
		fmt.Printf("%-20s %-20s %-8d %-40s\n",
			s.UpdatedAt.Format("2006-01-02 15:04:05"),
			truncate(s.Topic, 20),
			s.SizeBytes,
			truncate(s.Headline, 60),
		)
	}

	fmt.Printf("\nTotal: %d snapshots in %s\n", len(snapshots), database.Path())
	return nil
}

// ClearSnapshotsAction deletes stored snapshots for one topic, or all of
// them with --all.
func ClearSnapshotsAction(c *cli.Context) error {
	topic := c.String("topic")
	if topic == "" && !c.Bool("all") {
		return cli.Exit("Error: pass --topic <name> or --all", 1)
	}

	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	n, err := database.DeleteSnapshots(c.Context, topic)
	if err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	fmt.Printf("Deleted %d snapshots\n", n)
	return nil
}

// RunsAction lists recorded digest runs, newest first.
func RunsAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-36s %-20s %-7s %-8s %-8s %-8s %-30s\n",
		"Run ID", "Started", "Topics", "Stories", "Updated", "Warnings", "Output")
	fmt.Println(strings.Repeat("-", 125))
	for _, r := range runs {
		fmt.Printf("%-36s %-20s %-7d %-8d %-8d %-8d %-30s\n",
			r.RunID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.TopicCount,
			r.StoryCount,
			r.UpdatedCount,
			r.WarningCount,
			r.OutputPath,
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))
	fmt.Printf("\nTip: Use 'news-digest runs show <id>' to see story changes\n")
	return nil
}

// RunAction shows one run and the story changes it recorded.
func RunAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}

	run, err := database.GetRun(c.Context, runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	changes, err := database.ListChanges(c.Context, runID)
	if err != nil {
		return fmt.Errorf("failed to get run changes: %w", err)
	}

	fmt.Printf("Run %s\n", run.RunID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Started:   %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.FinishedAt != nil {
		fmt.Printf("Finished:  %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Printf("Finished:  (incomplete)\n")
	}
	fmt.Printf("Topics:    %d\n", run.TopicCount)
	fmt.Printf("Sources:   %d\n", run.SourceCount)
	fmt.Printf("Stories:   %d (%d updated)\n", run.StoryCount, run.UpdatedCount)
	fmt.Printf("Warnings:  %d\n", run.WarningCount)
	fmt.Printf("Output:    %s\n", run.OutputPath)

	if len(changes) > 0 {
		fmt.Printf("\nChanges (%d):\n", len(changes))
		fmt.Println(strings.Repeat("-", 60))
		for i, ch := range changes {
			fmt.Printf("%2d. [%s] %s\n", i+1, ch.Topic, ch.Headline)
			fmt.Printf("    %s\n", ch.Summary)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
