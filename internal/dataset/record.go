package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Department is one of the fixed employee departments.
type Department string

const (
	Engineering Department = "Engineering"
	Sales       Department = "Sales"
	HR          Department = "HR"
	Marketing   Department = "Marketing"
	DataScience Department = "Data Science"
)

// Departments lists every department in declaration order.
var Departments = []Department{Engineering, Sales, HR, Marketing, DataScience}

var (
	ErrUnknownDepartment = errors.New("unknown department")
	ErrUnknownField      = errors.New("unknown field")
)

// ParseDepartment matches a department name case-insensitively. Spaces, dashes
// and underscores are ignored so "data-science" and "DataScience" both work.
func ParseDepartment(name string) (Department, error) {
	key := normalizeKey(name)
	for _, d := range Departments {
		if normalizeKey(string(d)) == key {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDepartment, name)
}

// Record is one synthetic employee.
type Record struct {
	ID                 int        `json:"id"`
	Age                int        `json:"age"`
	YearsExperience    float64    `json:"yearsExperience"`
	Salary             int        `json:"salary"`
	PerformanceScore   float64    `json:"performanceScore"`
	HoursWorkedPerWeek float64    `json:"hoursWorkedPerWeek"`
	Department         Department `json:"department"`
	Churned            bool       `json:"churned"`
}

// Header is the fixed export field order.
var Header = []string{
	"id",
	"age",
	"yearsExperience",
	"salary",
	"performanceScore",
	"hoursWorkedPerWeek",
	"department",
	"churned",
}

// Field selects a numeric record attribute.
type Field int

const (
	FieldAge Field = iota
	FieldYearsExperience
	FieldSalary
	FieldPerformanceScore
	FieldHoursWorked
)

// Fields lists the numeric fields in export order.
var Fields = []Field{FieldAge, FieldYearsExperience, FieldSalary, FieldPerformanceScore, FieldHoursWorked}

var fieldNames = map[Field]string{
	FieldAge:              "age",
	FieldYearsExperience:  "yearsExperience",
	FieldSalary:           "salary",
	FieldPerformanceScore: "performanceScore",
	FieldHoursWorked:      "hoursWorkedPerWeek",
}

var fieldLabels = map[Field]string{
	FieldAge:              "Age (Years)",
	FieldYearsExperience:  "Experience (Years)",
	FieldSalary:           "Annual Salary ($)",
	FieldPerformanceScore: "Performance Score (0-100)",
	FieldHoursWorked:      "Weekly Hours",
}

// String returns the canonical field name used in exports and flags.
func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// Label returns the display label.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return f.String()
}

// Value extracts the field from a record.
func (f Field) Value(r Record) float64 {
	switch f {
	case FieldAge:
		return float64(r.Age)
	case FieldYearsExperience:
		return r.YearsExperience
	case FieldSalary:
		return float64(r.Salary)
	case FieldPerformanceScore:
		return r.PerformanceScore
	case FieldHoursWorked:
		return r.HoursWorkedPerWeek
	}
	return 0
}

// ParseField resolves a field by its canonical name, case-insensitively.
// "hours" and "experience" are accepted as shorthands.
func ParseField(name string) (Field, error) {
	key := normalizeKey(name)
	for _, f := range Fields {
		if normalizeKey(f.String()) == key {
			return f, nil
		}
	}
	switch key {
	case "hours", "hoursworked":
		return FieldHoursWorked, nil
	case "experience":
		return FieldYearsExperience, nil
	case "performance":
		return FieldPerformanceScore, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Column extracts one field from every record, in order.
func Column(records []Record, f Field) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = f.Value(r)
	}
	return out
}

// FilterByDepartment returns the records belonging to d, preserving order.
func FilterByDepartment(records []Record, d Department) []Record {
	var out []Record
	for _, r := range records {
		if r.Department == d {
			out = append(out, r)
		}
	}
	return out
}

// ChurnRate returns the churned share of records as a percentage.
func ChurnRate(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}
	n := 0
	for _, r := range records {
		if r.Churned {
			n++
		}
	}
	return float64(n) / float64(len(records)) * 100
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}
