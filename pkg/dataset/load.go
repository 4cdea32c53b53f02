// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/jllopis/adminqa/pkg/errors"
)

// LoadCSV reads a dataset from a CSV file with a header row.
// A missing file returns a CodeNotFound error; malformed content returns
// CodeInvalidInput.
func LoadCSV(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("%s file not found", path), err).
				WithContext("path", path)
		}
		return nil, errors.New(errors.CodeInternal, "open data file", err).WithContext("path", path)
	}
	defer file.Close()

	ds, err := Read(file)
	if err != nil {
		if typed := errors.As(err); typed.Code != errors.CodeInternal {
			return nil, typed.WithContext("path", path)
		}
		return nil, errors.New(errors.CodeInvalidInput, "read data file", err).WithContext("path", path)
	}
	return ds, nil
}

// Read parses CSV content. Column names are matched case-insensitively after
// trimming and stored lower-cased.
func Read(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New(errors.CodeInvalidInput, "data file is empty", nil)
	}
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		col := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		columns[i] = col
		index[col] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("data file is missing required columns: %s", strings.Join(missing, ", ")), nil)
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		rec, err := parseRecord(columns, row)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("line %d", line), err)
		}
		records = append(records, rec)
	}
	return &Dataset{columns: columns, records: records}, nil
}

func parseRecord(columns, row []string) (Record, error) {
	rec := Record{Fields: make(map[string]string, len(columns))}
	for i, col := range columns {
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}
		switch col {
		case ColumnName:
			rec.Name = value
		case ColumnRegion:
			rec.Region = value
		case ColumnGrade:
			grade, err := parseGrade(value)
			if err != nil {
				return Record{}, err
			}
			rec.Grade = grade
		default:
			rec.Fields[col] = value
		}
	}
	return rec, nil
}

// parseGrade accepts integers and integral floats ("8.0") as written by
// spreadsheet exports.
func parseGrade(value string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("grade is empty")
	}
	if grade, err := strconv.Atoi(value); err == nil {
		return grade, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("grade %q is not an integer", value)
	}
	return int(f), nil
}
