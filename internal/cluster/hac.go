// Package cluster implements agglomerative (bottom-up hierarchical)
// clustering of dense vectors.
package cluster

import (
	"errors"
	"fmt"
	"math"
)

// Linkage selects how the distance between two clusters is derived from the
// distances between their members.
type Linkage int

const (
	// Ward merges the pair that least increases total within-cluster variance.
	Ward Linkage = iota
	// Average uses the mean pairwise Euclidean distance.
	Average
	// Complete uses the largest pairwise Euclidean distance.
	Complete
	// Single uses the smallest pairwise Euclidean distance.
	Single
)

func (l Linkage) String() string {
	switch l {
	case Ward:
		return "ward"
	case Average:
		return "average"
	case Complete:
		return "complete"
	case Single:
		return "single"
	default:
		return fmt.Sprintf("linkage(%d)", int(l))
	}
}

var (
	// ErrNoPoints is returned for an empty input.
	ErrNoPoints = errors.New("cluster: no points")
	// ErrInvalidK is returned when k is below 1 or above the number of points.
	ErrInvalidK = errors.New("cluster: k out of range")
	// ErrRaggedInput is returned when points differ in length.
	ErrRaggedInput = errors.New("cluster: points have different dimensions")
	// ErrNonFiniteInput is returned when a coordinate is NaN or infinite.
	ErrNonFiniteInput = errors.New("cluster: point contains NaN or Inf")
	// ErrUnknownLinkage is returned for a Linkage value outside the defined set.
	ErrUnknownLinkage = errors.New("cluster: unknown linkage")
)

// Agglomerative partitions points into k clusters by repeatedly merging the
// closest pair under linkage. The result has one label per point; labels run
// from 0 to k-1 in order of first appearance. Ties merge the lowest-indexed
// pair, so the output is deterministic.
func Agglomerative(points [][]float32, k int, linkage Linkage) ([]int, error) {
	n := len(points)
	if n == 0 {
		return nil, ErrNoPoints
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: k=%d, n=%d", ErrInvalidK, k, n)
	}
	if linkage < Ward || linkage > Single {
		return nil, ErrUnknownLinkage
	}
	dim := len(points[0])
	for _, p := range points {
		if len(p) != dim {
			return nil, ErrRaggedInput
		}
		for _, v := range p {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return nil, ErrNonFiniteInput
			}
		}
	}

	// Ward's Lance-Williams update is exact on squared distances.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := squaredEuclidean(points[i], points[j])
			if linkage != Ward {
				d = math.Sqrt(d)
			}
			dist[i][j], dist[j][i] = d, d
		}
	}

	size := make([]int, n)
	parent := make([]int, n)
	active := make([]bool, n)
	for i := range size {
		size[i] = 1
		parent[i] = i
		active[i] = true
	}

	for clusters := n; clusters > k; clusters-- {
		a, b := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && dist[i][j] < best {
					best, a, b = dist[i][j], i, j
				}
			}
		}

		// Merge b into a.
		for c := 0; c < n; c++ {
			if !active[c] || c == a || c == b {
				continue
			}
			d := update(linkage, dist[a][c], dist[b][c], dist[a][b], size[a], size[b], size[c])
			dist[a][c], dist[c][a] = d, d
		}
		size[a] += size[b]
		active[b] = false
		parent[b] = a
	}

	labels := make([]int, n)
	next := 0
	seen := make(map[int]int, k)
	for i := range points {
		root := find(parent, i)
		label, ok := seen[root]
		if !ok {
			label = next
			seen[root] = label
			next++
		}
		labels[i] = label
	}
	return labels, nil
}

// update is the Lance-Williams recurrence for d(a∪b, c).
func update(l Linkage, dac, dbc, dab float64, na, nb, nc int) float64 {
	switch l {
	case Ward:
		fa, fb, fc := float64(na), float64(nb), float64(nc)
		return ((fa+fc)*dac + (fb+fc)*dbc - fc*dab) / (fa + fb + fc)
	case Average:
		fa, fb := float64(na), float64(nb)
		return (fa*dac + fb*dbc) / (fa + fb)
	case Complete:
		return math.Max(dac, dbc)
	default:
		return math.Min(dac, dbc)
	}
}

func find(parent []int, i int) int {
	for parent[i] != i {
		i = parent[i]
	}
	return i
}

func squaredEuclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
