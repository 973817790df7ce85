// Package builtin contains the per-dataset transform functions.
//
// Each transform reads one landing shape and produces the canonical row for
// its dataset family. Codes and names are trimmed; values go through
// transformer.ParseValue; the date interval through transformer.StartDate.
package builtin

import (
	"sort"
	"strings"

	"kpietl/internal/transformer"
)

var registry = map[string]transformer.Transform{}

func register(t transformer.Transform) {
	registry[t.Name] = t
}

func init() {
	register(transformer.Transform{Name: "occupation", Shape: transformer.ShapeVariable, Width: 6, Fn: occupation})
	register(transformer.Transform{Name: "sector", Shape: transformer.ShapeVariable, Width: 7, Fn: sector})

	register(transformer.Transform{Name: "volume", Shape: transformer.ShapeValue, Width: 4, Fn: value(false)})
	register(transformer.Transform{Name: "unemployment_volume", Shape: transformer.ShapeValue, Width: 4, Fn: value(false)})
	register(transformer.Transform{Name: "inactivity_volume", Shape: transformer.ShapeValue, Width: 4, Fn: value(false)})
	register(transformer.Transform{Name: "rate", Shape: transformer.ShapeValue, Width: 4, Fn: value(true)})
	register(transformer.Transform{Name: "ci", Shape: transformer.ShapeValue, Width: 4, Fn: value(true)})

	register(transformer.Transform{Name: "rate_by_age_gender", Shape: transformer.ShapeAgeGender, Width: 6, Fn: byAgeGender(true)})
	register(transformer.Transform{Name: "count_by_age_gender", Shape: transformer.ShapeAgeGender, Width: 6, Fn: byAgeGender(false)})

	register(transformer.Transform{Name: "claim_volume", Shape: transformer.ShapeClaims, Width: 6, Fn: claimVolume})
	register(transformer.Transform{Name: "claim_rate", Shape: transformer.ShapeClaims, Width: 6, Fn: claimRate})
}

// Lookup returns the named transform.
func Lookup(name string) (transformer.Transform, bool) {
	t, ok := registry[name]
	return t, ok
}

// Names lists the registered transforms in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// head is the date, geocode, geoname prefix every canonical row starts with.
func head(o transformer.Observation, layout string) transformer.Row {
	return transformer.Row{
		transformer.StartDate(o.Date, layout),
		strings.TrimSpace(o.Geocode),
		strings.TrimSpace(o.Geoname),
	}
}

func occupation(o transformer.Observation, rep transformer.Reporter) transformer.Row {
	return append(head(o, transformer.LayoutMonthYear),
		transformer.ParseValue(o.Value, true),
		transformer.Ethnicity.Classify(o.Variable, rep),
		transformer.Occupation.Classify(o.Variable, rep),
	)
}

func sector(o transformer.Observation, rep transformer.Reporter) transformer.Row {
	sic, name := transformer.Sector(o.Variable, rep)
	return append(head(o, transformer.LayoutMonthYear),
		transformer.ParseValue(o.Value, true),
		transformer.Ethnicity.Classify(o.Variable, rep),
		sic,
		name,
	)
}

func value(percent bool) transformer.Func {
	return func(o transformer.Observation, _ transformer.Reporter) transformer.Row {
		return append(head(o, transformer.LayoutMonthYear), transformer.ParseValue(o.Value, percent))
	}
}

func byAgeGender(percent bool) transformer.Func {
	return func(o transformer.Observation, rep transformer.Reporter) transformer.Row {
		return append(head(o, transformer.LayoutMonthYear),
			transformer.Gender.Classify(o.Variable, rep),
			transformer.Age.Classify(o.Variable, rep),
			transformer.ParseValue(o.Value, percent),
		)
	}
}

func claimVolume(o transformer.Observation, _ transformer.Reporter) transformer.Row {
	return append(head(o, transformer.LayoutFullMonthYear),
		transformer.ParseValue(o.Value, false),
		strings.TrimSpace(o.Gender),
		strings.TrimSpace(o.Age),
	)
}

func claimRate(o transformer.Observation, rep transformer.Reporter) transformer.Row {
	return append(head(o, transformer.LayoutFullMonthYear),
		transformer.ParseValue(o.Value, true),
		transformer.Gender.Classify(strings.TrimSpace(o.Gender), rep),
		transformer.Age.Classify(strings.TrimSpace(o.Age), rep),
	)
}
