// Package reference cross-checks the engine against github.com/mpraski/clusters.
package reference

import (
	"fmt"

	"github.com/mpraski/clusters"

	"kmeansviz/kmeans"
)

// DefaultIterations matches the iteration budget the demos use.
const DefaultIterations = 1000

// Cluster runs mpraski/clusters k-means on data and returns zero-based labels.
func Cluster(data []kmeans.Point, k, iterations int) ([]int, error) {
	if err := kmeans.ValidateClusterCount(k, len(data)); err != nil {
		return nil, err
	}
	c, err := clusters.KMeans(iterations, k, clusters.EuclideanDistance)
	if err != nil {
		return nil, fmt.Errorf("failed to create KMeans clusterer: %w", err)
	}

	observations := make([][]float64, len(data))
	for i, p := range data {
		observations[i] = []float64{p.X, p.Y}
	}
	if err = c.Learn(observations); err != nil {
		return nil, fmt.Errorf("failed to learn clusters: %w", err)
	}

	// Guesses are one-based.
	guesses := c.Guesses()
	labels := make([]int, len(guesses))
	for i, g := range guesses {
		labels[i] = g - 1
	}
	return labels, nil
}

// RandIndex is the fraction of point pairs on which two labelings agree
// about being in the same cluster. It is 1 for identical partitions under
// any renaming of the clusters.
func RandIndex(a, b []int) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d labels", kmeans.ErrLengthMismatch, len(a), len(b))
	}
	n := len(a)
	if n < 2 {
		return 1, nil
	}
	agree, pairs := 0, 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if (a[i] == a[j]) == (b[i] == b[j]) {
				agree++
			}
			pairs++
		}
	}
	return float64(agree) / float64(pairs), nil
}

// Compare clusters data with the reference library and reports how well
// labels agree with it.
func Compare(data []kmeans.Point, labels []int, k int) (float64, error) {
	ref, err := Cluster(data, k, DefaultIterations)
	if err != nil {
		return 0, err
	}
	return RandIndex(labels, ref)
}
