package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteCSV writes the header row followed by one row per record.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(Header))
	for _, r := range records {
		row[0] = strconv.Itoa(r.ID)
		row[1] = strconv.Itoa(r.Age)
		row[2] = formatFloat(r.YearsExperience)
		row[3] = strconv.Itoa(r.Salary)
		row[4] = formatFloat(r.PerformanceScore)
		row[5] = formatFloat(r.HoursWorkedPerWeek)
		row[6] = string(r.Department)
		row[7] = strconv.FormatBool(r.Churned)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a document produced by WriteCSV.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read header: empty document")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var out []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func checkHeader(header []string) error {
	if len(header) != len(Header) {
		return fmt.Errorf("header has %d columns, want %d", len(header), len(Header))
	}
	for i, h := range header {
		if strings.TrimSpace(h) != Header[i] {
			return fmt.Errorf("header column %d is %q, want %q", i+1, h, Header[i])
		}
	}
	return nil
}

func parseRow(row []string) (Record, error) {
	var (
		rec Record
		err error
	)
	if rec.ID, err = strconv.Atoi(row[0]); err != nil {
		return rec, fmt.Errorf("id: %w", err)
	}
	if rec.Age, err = strconv.Atoi(row[1]); err != nil {
		return rec, fmt.Errorf("age: %w", err)
	}
	if rec.YearsExperience, err = strconv.ParseFloat(row[2], 64); err != nil {
		return rec, fmt.Errorf("yearsExperience: %w", err)
	}
	if rec.Salary, err = strconv.Atoi(row[3]); err != nil {
		return rec, fmt.Errorf("salary: %w", err)
	}
	if rec.PerformanceScore, err = strconv.ParseFloat(row[4], 64); err != nil {
		return rec, fmt.Errorf("performanceScore: %w", err)
	}
	if rec.HoursWorkedPerWeek, err = strconv.ParseFloat(row[5], 64); err != nil {
		return rec, fmt.Errorf("hoursWorkedPerWeek: %w", err)
	}
	if rec.Department, err = ParseDepartment(row[6]); err != nil {
		return rec, err
	}
	if rec.Churned, err = strconv.ParseBool(row[7]); err != nil {
		return rec, fmt.Errorf("churned: %w", err)
	}
	return rec, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
