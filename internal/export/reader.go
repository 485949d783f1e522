package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"iclink/internal/audit"
)

// ReadRecords reads a CSV table written by WriteCSV.
func ReadRecords(path string) ([]audit.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []audit.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", filepath.Base(path), err)
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Records(header, rows), nil
}

// LoadOutputs reads the training and matched tables from dir for an
// audit-only pass.
func LoadOutputs(dir string) (audit.Outputs, error) {
	training, err := ReadRecords(filepath.Join(dir, TrainingFile))
	if err != nil {
		return audit.Outputs{}, err
	}
	matched, err := ReadRecords(filepath.Join(dir, MatchedFile))
	if err != nil {
		return audit.Outputs{}, err
	}
	return audit.Outputs{Training: training, Matched: matched}, nil
}
