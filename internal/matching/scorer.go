// Package matching computes pairwise compatibility between travelers.
package matching

import (
	"companion/internal/domain"
)

// Criterion names reported by Explain.
const (
	CriterionDestination = "destination"
	CriterionInterests   = "interests"
	CriterionAge         = "age"
	CriterionTravelModes = "travel_modes"
	CriterionProfession  = "profession"
	CriterionDates       = "dates"
)

const (
	// MinSharedInterests is the overlap needed for the interests bonus.
	MinSharedInterests = 2
	// MaxAgeGap is the largest age difference that earns the age bonus.
	MaxAgeGap = 5
)

// Weights is the point value of each criterion.
type Weights struct {
	Destination int
	Interests   int
	Age         int
	TravelModes int
	Profession  int
	// Dates is only applied when the scorer is built WithDateOverlap.
	Dates int
}

// DefaultWeights returns the canonical weight table. Its criteria sum to 100.
func DefaultWeights() Weights {
	return Weights{
		Destination: 40,
		Interests:   25,
		Age:         15,
		TravelModes: 15,
		Profession:  5,
		Dates:       30,
	}
}

// Scorer is a pure compatibility function. The zero value is not usable;
// build one with NewScorer.
type Scorer struct {
	weights     Weights
	dateOverlap bool
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithDateOverlap enables the date-range bonus with the given weight.
func WithDateOverlap(weight int) Option {
	return func(s *Scorer) {
		s.dateOverlap = true
		s.weights.Dates = weight
	}
}

// WithWeights replaces the weight table.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// NewScorer returns a scorer using DefaultWeights unless overridden.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxScore is the highest score this scorer can return.
func (s *Scorer) MaxScore() int {
	total := s.weights.Destination + s.weights.Interests + s.weights.Age + s.weights.TravelModes + s.weights.Profession
	if s.dateOverlap {
		total += s.weights.Dates
	}
	return total
}

// Breakdown is a score with the criteria that produced it.
type Breakdown struct {
	Score     int
	Satisfied []string
}

// Score returns the compatibility of a and b. Both travelers must be complete.
func (s *Scorer) Score(a, b domain.Traveler) int {
	return s.Explain(a, b).Score
}

// Explain scores a and b and lists the satisfied criteria in table order.
func (s *Scorer) Explain(a, b domain.Traveler) Breakdown {
	var bd Breakdown
	add := func(name string, points int) {
		bd.Score += points
		bd.Satisfied = append(bd.Satisfied, name)
	}

	if a.Intent.Destination == b.Intent.Destination {
		add(CriterionDestination, s.weights.Destination)
	}
	if IntersectionSize(a.Profile.Interests, b.Profile.Interests) >= MinSharedInterests {
		add(CriterionInterests, s.weights.Interests)
	}
	if absInt(a.Profile.Age-b.Profile.Age) <= MaxAgeGap {
		add(CriterionAge, s.weights.Age)
	}
	if IntersectionSize(a.Profile.TravelModes, b.Profile.TravelModes) > 0 {
		add(CriterionTravelModes, s.weights.TravelModes)
	}
	if a.Profile.Profession == b.Profile.Profession {
		add(CriterionProfession, s.weights.Profession)
	}
	if s.dateOverlap && DatesOverlap(a.Intent, b.Intent) {
		add(CriterionDates, s.weights.Dates)
	}
	return bd
}

// IntersectionSize counts the distinct values present in both slices.
// Duplicates within one slice are ignored.
func IntersectionSize(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	n := 0
	for _, v := range b {
		if _, ok := set[v]; ok {
			n++
			delete(set, v)
		}
	}
	return n
}

// DatesOverlap reports whether the inclusive date ranges of a and b intersect.
func DatesOverlap(a, b *domain.TripIntent) bool {
	return !a.StartDate.After(b.EndDate) && !b.StartDate.After(a.EndDate)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
