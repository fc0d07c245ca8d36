package kmeans

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Unassigned marks a point that has not been through an assignment step.
const Unassigned = -1

// Assign returns, for every point, the index of its nearest centroid. Ties go
// to the lowest index.
func Assign(centroids, data []Point) []int {
	labels := make([]int, len(data))
	for i, p := range data {
		labels[i] = nearest(p, centroids)
	}
	return labels
}

func nearest(p Point, centroids []Point) int {
	best := Unassigned
	bestDist := math.Inf(1)
	for j, c := range centroids {
		if d := Distance(p, c); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// Recompute returns the mean of the points assigned to each of the len(prev)
// clusters, along with the indices of clusters that received no points.
//
// Under Recover an empty cluster keeps its centroid from prev; under Fail an
// *EmptyClusterError is returned together with the recovered centroids.
func Recompute(labels []int, data, prev []Point, policy FaultPolicy) ([]Point, []int, error) {
	if len(labels) != len(data) {
		return nil, nil, fmt.Errorf("%w: %d labels, %d points", ErrLengthMismatch, len(labels), len(data))
	}

	k := len(prev)
	xs := make([][]float64, k)
	ys := make([][]float64, k)
	for i, l := range labels {
		if l < 0 || l >= k {
			return nil, nil, fmt.Errorf("%w: point %d has label %d, k=%d", ErrLabelOutOfRange, i, l, k)
		}
		xs[l] = append(xs[l], data[i].X)
		ys[l] = append(ys[l], data[i].Y)
	}

	centroids := make([]Point, k)
	var empty []int
	for j := range centroids {
		if len(xs[j]) == 0 {
			centroids[j] = prev[j]
			empty = append(empty, j)
			continue
		}
		centroids[j] = Point{X: stat.Mean(xs[j], nil), Y: stat.Mean(ys[j], nil)}
	}

	if len(empty) > 0 && policy == Fail {
		return centroids, empty, &EmptyClusterError{Clusters: empty}
	}
	return centroids, empty, nil
}

// Stable reports whether no centroid moved by more than tol along either
// axis. With tol == 0 the coordinates must be exactly equal.
func Stable(prev, next []Point, tol float64) bool {
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		if tol == 0 {
			if prev[i] != next[i] {
				return false
			}
			continue
		}
		if math.Abs(prev[i].X-next[i].X) > tol || math.Abs(prev[i].Y-next[i].Y) > tol {
			return false
		}
	}
	return true
}

// Inertia is the sum of squared distances from each point to its centroid.
// Unassigned points are skipped.
func Inertia(centroids, data []Point, labels []int) float64 {
	sum := 0.0
	for i, l := range labels {
		if l < 0 || l >= len(centroids) || i >= len(data) {
			continue
		}
		d := Distance(data[i], centroids[l])
		sum += d * d
	}
	return sum
}
