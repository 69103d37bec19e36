package dataset

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrInvalidSize is returned when Generate is asked for fewer than one record.
var ErrInvalidSize = errors.New("dataset size must be positive")

const (
	maxExperience     = 30.0
	salaryPerYear     = 5000.0
	baseChurn         = 0.1
	underpaidRatio    = 0.9
	burnoutHours      = 55.0
	poorPerformance   = 50.0
	minHours          = 30.0
	maxHours          = 70.0
	minPerformance    = 0.0
	maxPerformance    = 100.0
	defaultBaseSalary = 50000.0
)

var baseSalaries = map[Department]float64{
	Engineering: 80000,
	DataScience: 85000,
	Sales:       60000,
	Marketing:   55000,
}

// BaseSalary returns the department's salary before experience and noise.
func BaseSalary(d Department) float64 {
	if b, ok := baseSalaries[d]; ok {
		return b
	}
	return defaultBaseSalary
}

// Generator synthesizes employee records.
type Generator struct {
	s *Sampler
}

// NewGenerator returns a generator seeded with seed. A zero seed uses the clock.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewGeneratorWithSource(rand.NewSource(seed))
}

// NewGeneratorWithSource returns a generator drawing from src.
func NewGeneratorWithSource(src rand.Source) *Generator {
	return &Generator{s: NewSampler(src)}
}

// Generate returns size records with ids 1..size in generation order.
func (g *Generator) Generate(size int) ([]Record, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	out := make([]Record, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, g.next(i+1))
	}
	return out, nil
}

func (g *Generator) next(id int) Record {
	s := g.s
	dept := Departments[s.Intn(len(Departments))]

	experience := math.Abs(s.Normal(5, 3))
	if experience > maxExperience {
		experience = maxExperience
	}

	age := int(math.Floor(22 + experience + s.Normal(2, 2)))

	base := BaseSalary(dept)
	expected := base + experience*salaryPerYear
	salary := int(math.Floor(expected + s.Normal(0, 5000)))

	hours := clamp(s.Normal(40, 5), minHours, maxHours)

	performance := 70 + (hours-40)*0.5 + s.Normal(0, 10)
	if dept == Sales {
		performance += s.Normal(0, 15)
	}
	performance = clamp(performance, minPerformance, maxPerformance)

	churnProb := churnProbability(float64(salary)/expected, hours, performance)

	return Record{
		ID:                 id,
		Age:                age,
		YearsExperience:    round1(experience),
		Salary:             salary,
		PerformanceScore:   round1(performance),
		HoursWorkedPerWeek: round1(hours),
		Department:         dept,
		Churned:            s.Float64() < churnProb,
	}
}

// churnProbability starts at baseChurn and adds one increment per risk factor.
func churnProbability(payRatio, hours, performance float64) float64 {
	p := baseChurn
	if payRatio < underpaidRatio {
		p += 0.3
	}
	if hours > burnoutHours {
		p += 0.2
	}
	if performance < poorPerformance {
		p += 0.2
	}
	return p
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
