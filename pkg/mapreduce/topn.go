package mapreduce

import (
	"fmt"
	"sort"
)

type kv struct {
	Key   string
	Value int
}

func ranked(counts map[string]int) []kv {
	ss := make([]kv, 0, len(counts))
	for k, v := range counts {
		if k == "" || v <= 0 {
			continue
		}
		ss = append(ss, kv{k, v})
	}

	// Count descending, then name for a stable order across runs.
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Value != ss[j].Value {
			return ss[i].Value > ss[j].Value
		}
		return ss[i].Key < ss[j].Key
	})
	return ss
}

// TopDomains returns the top n domains formatted as "domain:count"
// (e.g., "reuters.com:12").
func TopDomains(counts map[string]int, n int) []string {
	ss := ranked(counts)
	limit := min(max(n, 0), len(ss))

	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = fmt.Sprintf("%s:%d", ss[i].Key, ss[i].Value)
	}
	return out
}
