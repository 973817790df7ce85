package csv

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer writes rows quoting every field that is not a number. nil is
// written as an empty quoted field.
type Writer struct {
	w *bufio.Writer
	// UseCRLF terminates lines with \r\n.
	UseCRLF bool
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes one row.
func (w *Writer) Write(row []any) error {
	for i, v := range row {
		if i > 0 {
			if err := w.w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := w.field(v); err != nil {
			return err
		}
	}
	if w.UseCRLF {
		_, err := w.w.WriteString("\r\n")
		return err
	}
	return w.w.WriteByte('\n')
}

// WriteHeader writes a row of column names.
func (w *Writer) WriteHeader(names []string) error {
	row := make([]any, len(names))
	for i, n := range names {
		row[i] = n
	}
	return w.Write(row)
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }

func (w *Writer) field(v any) error {
	var err error
	switch x := v.(type) {
	case nil:
		_, err = w.w.WriteString(`""`)
	case int:
		_, err = w.w.WriteString(strconv.Itoa(x))
	case int64:
		_, err = w.w.WriteString(strconv.FormatInt(x, 10))
	case float64:
		_, err = w.w.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	case string:
		err = w.quoted(x)
	default:
		err = w.quoted(fmt.Sprint(x))
	}
	return err
}

func (w *Writer) quoted(s string) error {
	if err := w.w.WriteByte('"'); err != nil {
		return err
	}
	if _, err := w.w.WriteString(strings.ReplaceAll(s, `"`, `""`)); err != nil {
		return err
	}
	return w.w.WriteByte('"')
}
