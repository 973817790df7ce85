package transformer

import "fmt"

// Shape names the positional layout of a landing row.
type Shape int

const (
	// ShapeValue is date, geocode, geoname, value.
	ShapeValue Shape = iota
	// ShapeVariable is date, geocode, geoname, value, variable.
	ShapeVariable
	// ShapeAgeGender is date, geocode, geoname, variable, value.
	ShapeAgeGender
	// ShapeClaims is date, geocode, geoname, value, gender, age.
	ShapeClaims
)

// Width is the minimum number of landing columns the shape reads.
func (s Shape) Width() int {
	switch s {
	case ShapeValue:
		return 4
	case ShapeVariable, ShapeAgeGender:
		return 5
	case ShapeClaims:
		return 6
	default:
		return 0
	}
}

func (s Shape) String() string {
	switch s {
	case ShapeValue:
		return "value"
	case ShapeVariable:
		return "variable"
	case ShapeAgeGender:
		return "age_gender"
	case ShapeClaims:
		return "claims"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Observation is a landing row with its fields named. Values are untrimmed,
// exactly as read.
type Observation struct {
	Date     string
	Geocode  string
	Geoname  string
	Value    string
	Variable string
	Gender   string
	Age      string
}

// ParseError reports a landing row that does not fit the dataset's header.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse reads raw positionally against header. The row must carry exactly
// one value per header column and the header must be wide enough for shape.
func Parse(shape Shape, header, raw []string, line int) (Observation, error) {
	if len(raw) != len(header) {
		return Observation{}, &ParseError{
			Line: line,
			Msg:  fmt.Sprintf("got %d columns, header has %d", len(raw), len(header)),
		}
	}
	if w := shape.Width(); w == 0 || len(raw) < w {
		return Observation{}, &ParseError{
			Line: line,
			Msg:  fmt.Sprintf("%s shape needs %d columns, row has %d", shape, shape.Width(), len(raw)),
		}
	}

	o := Observation{Date: raw[0], Geocode: raw[1], Geoname: raw[2]}
	switch shape {
	case ShapeValue:
		o.Value = raw[3]
	case ShapeVariable:
		o.Value, o.Variable = raw[3], raw[4]
	case ShapeAgeGender:
		o.Variable, o.Value = raw[3], raw[4]
	case ShapeClaims:
		o.Value, o.Gender, o.Age = raw[3], raw[4], raw[5]
	}
	return o, nil
}
