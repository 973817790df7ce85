package download

import "fmt"

// ProbeError means the record count of a dataset could not be obtained. The
// dataset is not downloaded.
type ProbeError struct {
	Dataset string
	URL     string
	Err     error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("could not get record count for %s: %v", e.Dataset, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// FetchError means one partition could not be downloaded. Sibling partitions
// are unaffected.
type FetchError struct {
	Dataset string
	File    string
	Part    int // 1-based
	Parts   int
	Err     error
}

func (e *FetchError) Error() string {
	if e.Parts > 1 {
		return fmt.Sprintf("could not download %s (part %d of %d): %v", e.File, e.Part, e.Parts, e.Err)
	}
	return fmt.Sprintf("could not download %s: %v", e.File, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
