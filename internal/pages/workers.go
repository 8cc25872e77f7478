package pages

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/dtnitsch/news-digest/pkg/detector"
	"github.com/dtnitsch/news-digest/pkg/manifest"
	"github.com/dtnitsch/news-digest/pkg/parser"
	"github.com/dtnitsch/news-digest/pkg/storage"
)

// Job is one HTML file to parse. URL may be empty when the page declares
// its own canonical URL. Order is the file's position on the command line.
type Job struct {
	Path  string
	URL   string
	Order int
}

// Result holds the outcome of a processed job.
type Result struct {
	manifest.PageResult
	Order int
}

func worker(ctx context.Context, id int, logger *slog.Logger, s *storage.Storage, p *parser.Parser, det *detector.Detector, wg *sync.WaitGroup, jobs <-chan Job, results chan<- Result) {
	defer wg.Done()
	for job := range jobs {
		result := Result{PageResult: manifest.PageResult{Path: job.Path}, Order: job.Order}
		if err := ctx.Err(); err != nil {
			result.Error = err
			result.ErrorType = "cancelled"
			results <- result
			continue
		}

		logger.Debug("Worker started job", "worker_id", id, "path", job.Path)

		html, err := s.ReadFile(job.Path)
		if err != nil {
			logger.Error("Error reading HTML", "worker_id", id, "path", job.Path, "error", err)
			result.Error = err
			result.ErrorType = "read_error"
			results <- result
			continue
		}

		doc, err := p.Parse(job.URL, string(html))
		if err != nil {
			errorType := "parse_error"
			switch {
			case errors.Is(err, parser.ErrNoURL):
				errorType = "no_url"
			case errors.Is(err, parser.ErrNoContent):
				errorType = "no_content"
			}
			logger.Warn("Error parsing HTML", "worker_id", id, "path", job.Path, "error", err)
			result.Error = err
			result.ErrorType = errorType
			results <- result
			continue
		}

		page := doc.Page(job.Order)
		det.Enrich(&page, doc)
		result.Page = &page
		results <- result

		logger.Debug("Worker finished job", "worker_id", id, "path", job.Path, "url", page.URL, "language", page.Language)
	}
}

// run parses jobs with workerCount workers and returns results in job order.
func run(ctx context.Context, logger *slog.Logger, jobs []Job, workerCount int, det *detector.Detector) []Result {
	s := &storage.Storage{}
	p := &parser.Parser{}

	if workerCount < 1 {
		workerCount = 1
	}
	logger.Info("Starting concurrent parse phase", "file_count", len(jobs), "workers", workerCount)

	var wg sync.WaitGroup
	jobCh := make(chan Job, len(jobs))
	results := make(chan Result, len(jobs))

	for w := 1; w <= workerCount; w++ {
		wg.Add(1)
		go worker(ctx, w, logger, s, p, det, &wg, jobCh, results)
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	wg.Wait()
	close(results)
	logger.Info("All parse workers finished")

	all := make([]Result, 0, len(jobs))
	for r := range results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Order < all[j].Order })
	return all
}
