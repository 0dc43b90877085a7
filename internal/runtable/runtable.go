package runtable

import (
	"encoding/csv"
	"os"

	"github.com/pkg/errors"
)

// Table is an ordered run table: a header plus string rows, preserving the
// column order of the file it was read from.
type Table struct {
	header []string
	rows   [][]string
}

// New creates an empty table with the given header. The header is copied.
func New(header []string) *Table {
	h := make([]string, len(header))
	copy(h, header)
	return &Table{header: h}
}

func (t *Table) Header() []string { return t.header }

func (t *Table) Rows() [][]string { return t.rows }

func (t *Table) Append(row []string) {
	t.rows = append(t.rows, row)
}

// ColumnIndex returns the position of a named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.header {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

// Read loads a CSV run table. The first record is the header; every row is
// kept as raw strings, matching how the tables are produced upstream.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open run table %s", path)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse run table %s", path)
	}
	if len(records) == 0 {
		return nil, errors.Errorf("run table %s is empty", path)
	}

	t := New(records[0])
	t.rows = records[1:]
	return t, nil
}

// Write stores the table as CSV at path, header first.
func (t *Table) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create output table %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.header); err != nil {
		return errors.Wrapf(err, "failed to write header to %s", path)
	}
	if err := w.WriteAll(t.rows); err != nil {
		return errors.Wrapf(err, "failed to write rows to %s", path)
	}
	return nil
}
