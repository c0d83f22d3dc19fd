package sampler

import (
	"fmt"
)

// Source is a uniform integer generator over [0, n).
// *math/rand/v2.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Pair is an integer grid coordinate
type Pair struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CapacityError reports a request for more distinct pairs than the grid holds
type CapacityError struct {
	LimitX int
	LimitY int
	N      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("cannot generate %d distinct pairs within limits [%d, %d]", e.N, e.LimitX, e.LimitY)
}

// RandomPairs draws n pairwise distinct coordinates in [0,limitX) x [0,limitY).
// Pairs are returned in the order they were accepted.
func RandomPairs(src Source, limitX, limitY, n int) ([]Pair, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative pair count: %d", n)
	}
	if n == 0 {
		return []Pair{}, nil
	}

	// Check capacity up front so an impossible request never starts drawing.
	// limitX*limitY would overflow for huge grids, so divide instead.
	if limitX <= 0 || limitY <= 0 || limitX < n/limitY+min(n%limitY, 1) {
		return nil, &CapacityError{LimitX: limitX, LimitY: limitY, N: n}
	}

	result := make([]Pair, 0, n)
	seen := make(map[Pair]bool, n)
	for len(result) < n {
		pair := Pair{X: src.IntN(limitX), Y: src.IntN(limitY)}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		result = append(result, pair)
	}

	return result, nil
}

// Point is a pixel position derived from a grid cell
type Point struct {
	X float64
	Y float64
}

// GridPositions maps grid cells to pixel centres: each cell is gridSize wide
// and the whole grid is inset by one circle diameter plus the stroke width.
func GridPositions(pairs []Pair, gridSize, radius, strokeWidth float64) []Point {
	inset := radius*2 + strokeWidth
	points := make([]Point, len(pairs))
	for i, p := range pairs {
		points[i] = Point{
			X: float64(p.X)*gridSize + inset,
			Y: float64(p.Y)*gridSize + inset,
		}
	}
	return points
}
