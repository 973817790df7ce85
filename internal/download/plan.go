package download

import (
	"kpietl/internal/dataset"
	"kpietl/internal/query"
)

// DefaultMaxPartitionSize is the page size used when none is configured.
const DefaultMaxPartitionSize = 25000

// Partition is one page of a dataset query.
type Partition struct {
	Dataset string
	URL     string
	Path    string

	Total int // records matched by the whole query
	Index int // 0-based
	Count int // number of partitions

	// Rows is the expected record count of this page, for progress only.
	Rows int
}

// Parts is ceil(total/max).
func Parts(total, max int) int {
	if total <= 0 || max <= 0 {
		return 0
	}
	return (total + max - 1) / max
}

// Plan splits a dataset into partitions. A single partition fetches the
// query unchanged straight into landingPath; otherwise every page carries
// RecordOffset/RecordLimit and a _part_{n} file name.
func Plan(name, rawURL, landingPath string, total, max int) ([]Partition, error) {
	if max <= 0 {
		max = DefaultMaxPartitionSize
	}
	n := Parts(total, max)
	if n == 0 {
		return nil, nil
	}
	if n == 1 {
		return []Partition{{
			Dataset: name, URL: rawURL, Path: landingPath,
			Total: total, Index: 0, Count: 1, Rows: total,
		}}, nil
	}

	parts := make([]Partition, n)
	for i := 0; i < n; i++ {
		u, err := query.PageURL(rawURL, i*max, max)
		if err != nil {
			return nil, err
		}
		rows := max
		if i == n-1 {
			rows = total - max*(n-1)
		}
		parts[i] = Partition{
			Dataset: name,
			URL:     u,
			Path:    dataset.PartPath(landingPath, i),
			Total:   total,
			Index:   i,
			Count:   n,
			Rows:    rows,
		}
	}
	return parts, nil
}
