// Package coherence scores how strongly a cluster's bullets share sources.
package coherence

import (
	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/citations"
)

// DefaultThreshold is the score below which a cluster is loosely related.
const DefaultThreshold = 0.3

// Score returns the mean pairwise Jaccard similarity of the bullets'
// normalized citation sets. Pairs where both sets are empty are skipped.
// Clusters with at most one bullet score 1.
func Score(c models.Cluster) float64 {
	if len(c.Bullets) <= 1 {
		return 1.0
	}

	sets := make([][]int, len(c.Bullets))
	for i, b := range c.Bullets {
		sets[i] = citations.Normalize(b.Citations)
	}

	var sum float64
	var pairs int
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			if len(sets[i]) == 0 && len(sets[j]) == 0 {
				continue
			}
			sum += jaccard(sets[i], sets[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0.0
	}
	return sum / float64(pairs)
}

// Validate returns a copy of c annotated with its score and flag using
// DefaultThreshold. Bullets are left untouched.
func Validate(c models.Cluster) models.Cluster {
	return ValidateWith(c, DefaultThreshold)
}

// ValidateWith is Validate with an explicit threshold.
func ValidateWith(c models.Cluster, threshold float64) models.Cluster {
	c.Coherence = Score(c)
	c.Flag = models.CoherenceCoherent
	if c.Coherence < threshold {
		c.Flag = models.CoherenceLooselyRelated
	}
	return c
}

// jaccard expects sorted, de-duplicated inputs.
func jaccard(a, b []int) float64 {
	var inter int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
