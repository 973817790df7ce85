package storage

import (
	"strings"
	"time"
	"unicode"
)

// Logical column types. Backends map them to SQL types.
const (
	TypeText   = "text"
	TypeBigint = "bigint"
	TypeDouble = "double"
	TypeDate   = "date"
)

// ColumnDef describes one column of a TableDef.
type ColumnDef struct {
	Name     string
	Type     string
	Nullable bool
}

// TableDef is a table name and its ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnNames returns the column names in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// ColumnName turns an output header name into a lower-case identifier:
// "Employment_Rate" -> "employment_rate", "SIC code" -> "sic_code".
func ColumnName(header string) string {
	var b strings.Builder
	under := false
	for _, r := range strings.TrimSpace(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			under = false
			continue
		}
		if !under && b.Len() > 0 {
			b.WriteByte('_')
			under = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// InferTable builds a table definition from an output header and a sample
// of canonical rows. Each column takes the type of its first non-nil sample
// value; columns with no sample value are text. Only the first column (the
// date) is NOT NULL.
func InferTable(fqn string, header []string, sample [][]any) TableDef {
	td := TableDef{FQN: fqn, Columns: make([]ColumnDef, len(header))}
	for i, h := range header {
		td.Columns[i] = ColumnDef{Name: ColumnName(h), Type: TypeText, Nullable: i != 0}
		for _, row := range sample {
			if i >= len(row) || row[i] == nil {
				continue
			}
			td.Columns[i].Type = typeOf(row[i])
			break
		}
	}
	return td
}

func typeOf(v any) string {
	switch v.(type) {
	case time.Time:
		return TypeDate
	case int, int32, int64:
		return TypeBigint
	case float32, float64:
		return TypeDouble
	default:
		return TypeText
	}
}
