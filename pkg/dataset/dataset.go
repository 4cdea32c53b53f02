// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataset holds the tabular student data that roles are scoped over.
//
// A Dataset is loaded once and treated as immutable. Every operation that
// derives rows from it returns a new Dataset with copied records.
package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
)

// Required column names.
const (
	ColumnName   = "name"
	ColumnGrade  = "grade"
	ColumnRegion = "region"
)

// RequiredColumns lists the columns every dataset must carry.
var RequiredColumns = []string{ColumnGrade, ColumnRegion, ColumnName}

// Record is one row of the dataset.
type Record struct {
	Name   string
	Grade  int
	Region string
	// Fields holds every other column as raw text, keyed by column name.
	Fields map[string]string
}

// Value returns the textual value of col for this record.
func (r Record) Value(col string) string {
	switch col {
	case ColumnName:
		return r.Name
	case ColumnGrade:
		return strconv.Itoa(r.Grade)
	case ColumnRegion:
		return r.Region
	default:
		return r.Fields[col]
	}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.Fields != nil {
		out.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// Dataset is an ordered set of records sharing the same columns.
type Dataset struct {
	columns []string
	records []Record
}

// New builds a dataset from columns and records. Both slices are copied.
// When columns is empty the required columns are used.
func New(columns []string, records []Record) *Dataset {
	if len(columns) == 0 {
		columns = RequiredColumns
	}
	ds := &Dataset{
		columns: append([]string(nil), columns...),
		records: make([]Record, 0, len(records)),
	}
	for _, rec := range records {
		ds.records = append(ds.records, rec.Clone())
	}
	return ds
}

// Columns returns the column names in file order.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.columns...)
}

// Records returns a copy of the records.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	out := make([]Record, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, rec.Clone())
	}
	return out
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Empty reports whether the dataset has no records.
func (d *Dataset) Empty() bool { return d.Len() == 0 }

// Select returns a new dataset holding the records that satisfy keep,
// in their original order. A nil keep selects nothing.
func (d *Dataset) Select(keep func(Record) bool) *Dataset {
	out := &Dataset{columns: d.Columns(), records: []Record{}}
	if d == nil || keep == nil {
		return out
	}
	for _, rec := range d.records {
		if keep(rec) {
			out.records = append(out.records, rec.Clone())
		}
	}
	return out
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	return d.Select(func(Record) bool { return true })
}

// Rows renders the records as a string matrix aligned with Columns.
func (d *Dataset) Rows() [][]string {
	if d == nil {
		return nil
	}
	rows := make([][]string, 0, len(d.records))
	for _, rec := range d.records {
		row := make([]string, len(d.columns))
		for i, col := range d.columns {
			row[i] = rec.Value(col)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the header and all records to w.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns()); err != nil {
		return err
	}
	if err := cw.WriteAll(d.Rows()); err != nil {
		return err
	}
	return cw.Error()
}

// CSV returns the dataset serialised as CSV text.
func (d *Dataset) CSV() string {
	var buf bytes.Buffer
	if err := d.WriteCSV(&buf); err != nil {
		return ""
	}
	return buf.String()
}
