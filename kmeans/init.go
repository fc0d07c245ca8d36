package kmeans

import (
	"fmt"
	"math"
	"strings"
)

// InitMethod selects how the first centroid set is chosen.
type InitMethod int

const (
	// Random draws k points uniformly with replacement.
	Random InitMethod = iota
	// KMeansPlusPlus draws points weighted by their distance to the chosen centroids.
	KMeansPlusPlus
	// Farthest repeatedly picks the point farthest from the chosen centroids.
	Farthest
	// Manual uses the user supplied centroid buffer.
	Manual
)

var initMethodNames = map[InitMethod]string{
	Random:         "random",
	KMeansPlusPlus: "k-means++",
	Farthest:       "farthest",
	Manual:         "manual",
}

func (m InitMethod) String() string {
	if s, ok := initMethodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("InitMethod(%d)", int(m))
}

// ParseInitMethod parses the names used on the wire.
func ParseInitMethod(s string) (InitMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random":
		return Random, nil
	case "k-means++", "kmeans++", "kmeanspp":
		return KMeansPlusPlus, nil
	case "farthest", "farthest-point":
		return Farthest, nil
	case "manual":
		return Manual, nil
	}
	return Random, fmt.Errorf("%w: %q", ErrUnknownInitMethod, s)
}

func (m InitMethod) MarshalText() ([]byte, error) {
	if _, ok := initMethodNames[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownInitMethod, int(m))
	}
	return []byte(m.String()), nil
}

func (m *InitMethod) UnmarshalText(b []byte) error {
	parsed, err := ParseInitMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ValidateClusterCount checks 1 <= k <= n.
func ValidateClusterCount(k, n int) error {
	if k < 1 || k > n {
		return &InvalidClusterCountError{K: k, N: n}
	}
	return nil
}

// Initialize returns k initial centroids chosen from data with the given
// method. manual is only read by the Manual method and is copied.
func Initialize(method InitMethod, k int, data, manual []Point, src Source, seeding FaultPolicy) ([]Point, error) {
	centroids, _, err := initialize(method, k, data, manual, src, seeding)
	return centroids, err
}

// initialize also reports how many k-means++ picks fell back to a uniform draw.
func initialize(method InitMethod, k int, data, manual []Point, src Source, seeding FaultPolicy) ([]Point, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrNoData
	}
	if err := ValidateClusterCount(k, len(data)); err != nil {
		return nil, 0, err
	}

	switch method {
	case Random:
		centroids := make([]Point, k)
		for i := range centroids {
			centroids[i] = data[src.Intn(len(data))]
		}
		return centroids, 0, nil
	case KMeansPlusPlus:
		return seedPlusPlus(k, data, src, seeding)
	case Farthest:
		return seedFarthest(k, data, src), 0, nil
	case Manual:
		if len(manual) != k {
			return nil, 0, &ManualCentroidMismatchError{K: k, Got: len(manual)}
		}
		return clonePoints(manual), 0, nil
	}
	return nil, 0, fmt.Errorf("%w: %d", ErrUnknownInitMethod, int(method))
}

func seedPlusPlus(k int, data []Point, src Source, seeding FaultPolicy) ([]Point, int, error) {
	centroids := make([]Point, 0, k)
	centroids = append(centroids, data[src.Intn(len(data))])
	weights := make([]float64, len(data))
	fallbacks := 0

	for len(centroids) < k {
		sum := minDistances(weights, centroids, data)
		if sum == 0 {
			if seeding == Fail {
				return nil, fallbacks, &DegenerateSeedingError{Chosen: len(centroids)}
			}
			fallbacks++
			centroids = append(centroids, data[src.Intn(len(data))])
			continue
		}

		r := src.Float64() * sum
		picked := -1
		cumulative := 0.0
		for i, w := range weights {
			if w == 0 {
				continue
			}
			cumulative += w
			picked = i
			if cumulative >= r {
				break
			}
		}
		// picked is the last positive weight if rounding kept cumulative below r.
		centroids = append(centroids, data[picked])
	}
	return centroids, fallbacks, nil
}

func seedFarthest(k int, data []Point, src Source) []Point {
	centroids := make([]Point, 0, k)
	centroids = append(centroids, data[src.Intn(len(data))])
	weights := make([]float64, len(data))

	for len(centroids) < k {
		minDistances(weights, centroids, data)
		best := 0
		for i, w := range weights {
			if w > weights[best] {
				best = i
			}
		}
		centroids = append(centroids, data[best])
	}
	return centroids
}

// minDistances fills dst with each point's distance to its nearest centroid
// and returns their sum.
func minDistances(dst []float64, centroids, data []Point) float64 {
	sum := 0.0
	for i, p := range data {
		m := math.Inf(1)
		for _, c := range centroids {
			if d := Distance(p, c); d < m {
				m = d
			}
		}
		dst[i] = m
		sum += m
	}
	return sum
}
