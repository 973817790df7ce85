package download

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"kpietl/internal/query"
)

// maxCountBody caps the count response; the service answers with a bare
// integer.
const maxCountBody = 64

// Client is the subset of the query-service client the engine uses.
type Client interface {
	ReadBody(ctx context.Context, url string, n int) ([]byte, error)
	Download(ctx context.Context, url, dst string) (int64, error)
}

// Prober discovers how many records a dataset query matches.
type Prober struct {
	Client Client
}

// Count issues the count-only variant of rawURL and parses the body.
func (p Prober) Count(ctx context.Context, dataset, rawURL string) (int, error) {
	countURL, err := query.CountURL(rawURL)
	if err != nil {
		return 0, &ProbeError{Dataset: dataset, URL: rawURL, Err: err}
	}
	body, err := p.Client.ReadBody(ctx, countURL, maxCountBody)
	if err != nil {
		return 0, &ProbeError{Dataset: dataset, URL: countURL, Err: err}
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return 0, &ProbeError{Dataset: dataset, URL: countURL, Err: fmt.Errorf("non-numeric count %q", body)}
	}
	if n < 0 {
		return 0, &ProbeError{Dataset: dataset, URL: countURL, Err: fmt.Errorf("negative count %d", n)}
	}
	return n, nil
}
