package transformer

import (
	"strings"

	"golang.org/x/text/cases"
)

// Unclassified is returned for labels no rule matches.
const Unclassified = ""

// Rule maps any of its substrings to Value.
type Rule struct {
	Contains []string
	Value    string
}

// Classifier maps free-text labels to a closed set of values. Rules are
// evaluated in order; the first rule with a matching substring wins.
type Classifier struct {
	Kind string
	// Fallback is returned instead of Unclassified on a miss, without
	// reporting it.
	Fallback string
	// CaseSensitive disables case folding of label and patterns.
	CaseSensitive bool
	Rules         []Rule
}

// Classify returns the value of the first matching rule. A miss is reported
// to rep and yields Fallback (Unclassified unless set).
func (c Classifier) Classify(label string, rep Reporter) string {
	subject := label
	var folder cases.Caser
	if !c.CaseSensitive {
		folder = cases.Fold()
		subject = folder.String(label)
	}
	for _, r := range c.Rules {
		for _, p := range r.Contains {
			if !c.CaseSensitive {
				p = folder.String(p)
			}
			if strings.Contains(subject, p) {
				return r.Value
			}
		}
	}
	if c.Fallback != "" {
		return c.Fallback
	}
	if rep != nil {
		rep.Miss(c.Kind, label)
	}
	return Unclassified
}

// Ethnicity groups.
var Ethnicity = Classifier{
	Kind: "ethnicity",
	Rules: []Rule{
		{Contains: []string{"whites"}, Value: "Whites"},
		{Contains: []string{"mixed ethnic group"}, Value: "Mixed Ethnic Groups"},
		{Contains: []string{"indians"}, Value: "Indians"},
		{Contains: []string{"pakistani/bangladeshis"}, Value: "Pakistani/Bangladeshi"},
		{Contains: []string{"black or black british"}, Value: "Black"},
		{Contains: []string{"other ethnic group", "other ethnic grps"}, Value: "Other"},
	},
}

// Occupation major groups (SOC).
var Occupation = Classifier{
	Kind: "occupation",
	Rules: []Rule{
		{Contains: []string{"managers, directors & senior"}, Value: "Managers, Directors & Senior Officials"},
		{
			Contains: []string{"professional occupations", "prof. occupations", "prof. occups.", "professional occups."},
			Value:    "Professional Occupations",
		},
		{
			Contains: []string{"associate prof. & technical occupations", "associate prof. & tech. occups."},
			Value:    "Associate Professional & Technical Occupations",
		},
		{
			Contains: []string{"administrative & secretarial occupations", "admin. & secretarial occups."},
			Value:    "Administrative & Secretarial Occupations",
		},
		{Contains: []string{"skilled trades occupations", "skilled trades occups."}, Value: "Skilled Trades Occupations"},
		{Contains: []string{"caring, leisure and other occ"}, Value: "Caring, Leisure, Other Occupations"},
		{Contains: []string{"sales & consumer service occ"}, Value: "Sales & Consumer Service Occupations"},
		{Contains: []string{"process, plant & mach"}, Value: "Process, Plant & Machine Operatives"},
		{Contains: []string{"elementary occup"}, Value: "Elementary Occupations"},
	},
}

// SIC section codes, matched on the "X:" prefix the service uses.
var SIC = Classifier{
	Kind:          "sector",
	CaseSensitive: true,
	Rules: []Rule{
		{Contains: []string{"A:"}, Value: "A"},
		{Contains: []string{"B,D,E:"}, Value: "B,D,E"},
		{Contains: []string{"C:"}, Value: "C"},
		{Contains: []string{"F:"}, Value: "F"},
		{Contains: []string{"G,I:"}, Value: "G,I"},
		{Contains: []string{"H,J:"}, Value: "H,J"},
		{Contains: []string{"K-N:"}, Value: "K-N"},
		{Contains: []string{"O-Q:"}, Value: "O-Q"},
		{Contains: []string{"R-U:"}, Value: "R-U"},
		{Contains: []string{"G-U:"}, Value: "G-U"},
	},
}

var sectorNames = map[string]string{
	"A":     "Agriculture & Fishing",
	"B,D,E": "Energy & Water",
	"C":     "Manufacturing",
	"F":     "Construction",
	"G,I":   "Distribution, Hotels and Restaurants",
	"H,J":   "Transport and Communication",
	"K-N":   "Banking, Finance, and Insurance",
	"O-Q":   "Public Admin, Education and Health",
	"R-U":   "Other Services",
	"G-U":   "Total Services",
}

// Sector returns the SIC section and sector name for label. Both are
// Unclassified on a miss, which is reported once.
func Sector(label string, rep Reporter) (sic, sector string) {
	sic = SIC.Classify(label, rep)
	return sic, sectorNames[sic]
}

// Gender never misses: anything that is not female or male is "All".
// "females" is checked first because it contains "males".
var Gender = Classifier{
	Kind:     "gender",
	Fallback: "All",
	Rules: []Rule{
		{Contains: []string{"females"}, Value: "Female"},
		{Contains: []string{"males"}, Value: "Male"},
	},
}

// Age bands.
var Age = Classifier{
	Kind: "age",
	Rules: []Rule{
		{Contains: []string{"16+"}, Value: "16+"},
		{Contains: []string{"16-64"}, Value: "16-64"},
		{Contains: []string{"16-19"}, Value: "16-19"},
		{Contains: []string{"20-24"}, Value: "20-24"},
		{Contains: []string{"25-34"}, Value: "25-34"},
		{Contains: []string{"35-49"}, Value: "35-49"},
		{Contains: []string{"50+"}, Value: "50+"},
		{Contains: []string{"50-64"}, Value: "50-64"},
		{Contains: []string{"65+"}, Value: "65+"},
		{Contains: []string{"16-24"}, Value: "16-24"},
	},
}
