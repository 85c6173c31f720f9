package opt

import (
	"math"
	"sort"
)

// Individual is a position in the search space and its fitness.
type Individual struct {
	Position []float64
	Fitness  float64
}

// Clone returns a deep copy of the individual.
func (ind Individual) Clone() Individual {
	pos := make([]float64, len(ind.Position))
	copy(pos, ind.Position)
	return Individual{Position: pos, Fitness: ind.Fitness}
}

// Population is an ordered collection of individuals.
type Population []Individual

// Best returns the index of the minimum-fitness individual.
// Ties resolve to the earliest index. Returns -1 for an empty population.
func (pop Population) Best() int {
	best := -1
	for i := range pop {
		if best < 0 || pop[i].Fitness < pop[best].Fitness {
			best = i
		}
	}
	return best
}

// fitnessStats returns max, min and sum of fitness over the population.
func (pop Population) fitnessStats() (maxFit, minFit, sumFit float64) {
	maxFit = math.Inf(-1)
	minFit = math.Inf(1)
	for _, ind := range pop {
		maxFit = math.Max(maxFit, ind.Fitness)
		minFit = math.Min(minFit, ind.Fitness)
		sumFit += ind.Fitness
	}
	return maxFit, minFit, sumFit
}

// Clone returns a deep copy of the population.
func (pop Population) Clone() Population {
	out := make(Population, len(pop))
	for i, ind := range pop {
		out[i] = ind.Clone()
	}
	return out
}

// crowdingScores returns, for each individual, the sum of its Euclidean
// distances to every individual in the population.
func (pop Population) crowdingScores() []float64 {
	scores := make([]float64, len(pop))
	for i := 0; i < len(pop); i++ {
		for j := i + 1; j < len(pop); j++ {
			d := euclidean(pop[i].Position, pop[j].Position)
			scores[i] += d
			scores[j] += d
		}
	}
	return scores
}

// mostIsolated returns the k individuals with the highest crowding scores,
// ordered by descending score. Equal scores keep their population order.
func (pop Population) mostIsolated(k int) Population {
	scores := pop.crowdingScores()
	order := make([]int, len(pop))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	out := make(Population, k)
	for i := 0; i < k; i++ {
		out[i] = pop[order[i]]
	}
	return out
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
