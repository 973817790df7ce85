// Package transformer turns raw landing rows into canonical rows.
//
// The pipeline parses each raw row once into an Observation according to the
// dataset's Shape, then hands it to the dataset's Func. Funcs are pure apart
// from reporting classification misses through a Reporter.
package transformer

import "fmt"

// Row is a canonical row: typed values aligned to a dataset's output header.
// Values are time.Time, string, int64, float64 or nil.
type Row []any

// Reporter receives classification misses. Implementations log them as
// warnings; a miss is never fatal.
type Reporter interface {
	Miss(kind, label string)
}

// Func maps one parsed observation to a canonical row.
type Func func(o Observation, rep Reporter) Row

// Transform is a named, pluggable per-dataset transform.
type Transform struct {
	Name  string
	Shape Shape
	// Width is the number of columns Fn produces.
	Width int
	Fn    Func
}

// Apply runs the transform. A nil rep discards misses.
func (t Transform) Apply(o Observation, rep Reporter) Row {
	if rep == nil {
		rep = discard{}
	}
	return t.Fn(o, rep)
}

func (t Transform) String() string {
	return fmt.Sprintf("%s(%s)", t.Name, t.Shape)
}

type discard struct{}

func (discard) Miss(string, string) {}
