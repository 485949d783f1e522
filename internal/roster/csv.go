package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingColumn reports a roster without the required name column.
var ErrMissingColumn = errors.New("roster column missing")

// Columns maps roster fields to header names.
type Columns struct {
	Name           string
	DOB            string
	Eye            string
	Sphere         string
	Cyl            string
	ICLPower       string
	ICLSize        string
	Vault          string
	Exchange       string
	ExchangedSize  string
	ExchangedVault string
	ExchangedPower string
	DOS            string
	Target         string
}

// DefaultColumns returns the header names used by the clinic spreadsheet.
func DefaultColumns() Columns {
	return Columns{
		Name:           "NAME",
		DOB:            "DOB",
		Eye:            "Eye",
		Sphere:         "Sphere",
		Cyl:            "Cyl",
		ICLPower:       "ICL Power",
		ICLSize:        "ICL Size",
		Vault:          "Vault",
		Exchange:       "Exchange?",
		ExchangedSize:  "Exchanged Size",
		ExchangedVault: "Exchanged Vault",
		ExchangedPower: "Exchanged Power",
		DOS:            "DOS",
		Target:         "Target",
	}
}

// Row is one roster line with raw cell values. Line is the 1-based line
// number in the source file, counting the header.
type Row struct {
	Line           int
	Name           string
	DOB            string
	Eye            string
	Sphere         string
	Cyl            string
	ICLPower       string
	ICLSize        string
	Vault          string
	Exchange       string
	ExchangedSize  string
	ExchangedVault string
	ExchangedPower string
	DOS            string
	Target         string
}

// ReadFile opens path and reads it with ReadCSV.
func ReadFile(path string, cols Columns) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer file.Close()
	return ReadCSV(file, cols)
}

// ReadCSV parses a roster. Optional columns may be absent; a missing name
// column yields ErrMissingColumn. Blank lines are skipped.
func ReadCSV(r io.Reader, cols Columns) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read roster header: %w: %s", ErrMissingColumn, cols.Name)
		}
		return nil, fmt.Errorf("read roster header: %w", err)
	}
	positions := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}
	column := func(name string) int {
		if idx, ok := positions[strings.ToLower(strings.TrimSpace(name))]; ok && name != "" {
			return idx
		}
		return -1
	}
	nameIdx := column(cols.Name)
	if nameIdx < 0 {
		return nil, fmt.Errorf("read roster header: %w: %s", ErrMissingColumn, cols.Name)
	}
	fields := []struct {
		idx  int
		dest func(*Row) *string
	}{
		{nameIdx, func(r *Row) *string { return &r.Name }},
		{column(cols.DOB), func(r *Row) *string { return &r.DOB }},
		{column(cols.Eye), func(r *Row) *string { return &r.Eye }},
		{column(cols.Sphere), func(r *Row) *string { return &r.Sphere }},
		{column(cols.Cyl), func(r *Row) *string { return &r.Cyl }},
		{column(cols.ICLPower), func(r *Row) *string { return &r.ICLPower }},
		{column(cols.ICLSize), func(r *Row) *string { return &r.ICLSize }},
		{column(cols.Vault), func(r *Row) *string { return &r.Vault }},
		{column(cols.Exchange), func(r *Row) *string { return &r.Exchange }},
		{column(cols.ExchangedSize), func(r *Row) *string { return &r.ExchangedSize }},
		{column(cols.ExchangedVault), func(r *Row) *string { return &r.ExchangedVault }},
		{column(cols.ExchangedPower), func(r *Row) *string { return &r.ExchangedPower }},
		{column(cols.DOS), func(r *Row) *string { return &r.DOS }},
		{column(cols.Target), func(r *Row) *string { return &r.Target }},
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if blankRecord(record) {
			continue
		}
		row := Row{Line: line}
		for _, f := range fields {
			if f.idx < 0 || f.idx >= len(record) {
				continue
			}
			*f.dest(&row) = strings.TrimSpace(record[f.idx])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
