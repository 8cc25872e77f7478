package mapreduce

import (
	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/analytics"
)

// Map generates a domain citation count map for a single topic's clusters.
func Map(clusters []models.Cluster, a *analytics.Analytics) map[string]int {
	return a.DomainCounts(clusters)
}

// Reduce aggregates a slice of per-topic domain counts into a single map.
func Reduce(intermediate []map[string]int) map[string]int {
	finalResults := make(map[string]int)

	for _, counts := range intermediate {
		for domain, count := range counts {
			finalResults[domain] += count
		}
	}

	return finalResults
}
