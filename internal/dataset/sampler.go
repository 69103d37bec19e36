package dataset

import (
	"math"
	"math/rand"
)

// Sampler draws uniform and normal variates from an injected source.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler wraps the given source. Tests pass a fixed seed to get a
// reproducible stream.
func NewSampler(src rand.Source) *Sampler {
	return &Sampler{rng: rand.New(src)}
}

// Float64 returns a uniform draw in [0,1).
func (s *Sampler) Float64() float64 { return s.rng.Float64() }

// Intn returns a uniform int in [0,n).
func (s *Sampler) Intn(n int) int { return s.rng.Intn(n) }

// Normal returns one Box-Muller sample with the given mean and standard deviation.
func (s *Sampler) Normal(mean, stdDev float64) float64 {
	u := s.nonZero()
	v := s.nonZero()
	z := math.Sqrt(-2.0*math.Log(u)) * math.Cos(2.0*math.Pi*v)
	return z*stdDev + mean
}

// nonZero redraws until the value is strictly positive; ln(0) is undefined.
func (s *Sampler) nonZero() float64 {
	x := s.rng.Float64()
	for x == 0 {
		x = s.rng.Float64()
	}
	return x
}
