package kmeans

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted replays fixed random draws and returns 0 once exhausted.
type scripted struct {
	ints   []int
	floats []float64
}

func (s *scripted) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *scripted) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func pts(xy ...[2]float64) []Point {
	out := make([]Point, len(xy))
	for i, p := range xy {
		out[i] = Point{X: p[0], Y: p[1]}
	}
	return out
}

func uniformData(n int, seed int64) []Point {
	rng := rand.New(rand.NewSource(seed))
	data := make([]Point, n)
	for i := range data {
		data[i] = Point{X: rng.Float64(), Y: rng.Float64()}
	}
	return data
}

func TestDistance(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 3, Y: 4}
	assert.InDelta(t, 5.0, Distance(a, b), 1e-12)
	assert.Equal(t, Distance(a, b), Distance(b, a))
	assert.Zero(t, Distance(b, b))
}

func TestPointJSON(t *testing.T) {
	var p Point
	require.NoError(t, json.Unmarshal([]byte(`[0.25, 0.75]`), &p))
	assert.Equal(t, Point{X: 0.25, Y: 0.75}, p)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `[0.25,0.75]`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &p))
}

func TestParseInitMethod(t *testing.T) {
	for _, m := range []InitMethod{Random, KMeansPlusPlus, Farthest, Manual} {
		parsed, err := ParseInitMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseInitMethod("spectral")
	assert.ErrorIs(t, err, ErrUnknownInitMethod)
}

func TestInitialize(t *testing.T) {
	data := uniformData(60, 1)

	t.Run("SizeAndRange", func(t *testing.T) {
		for _, m := range []InitMethod{Random, KMeansPlusPlus, Farthest} {
			for k := 1; k <= 8; k++ {
				centroids, err := Initialize(m, k, data, nil, rand.New(rand.NewSource(int64(k))), Recover)
				require.NoError(t, err, m.String())
				require.Len(t, centroids, k)
				for _, c := range centroids {
					assert.Contains(t, data, c, "%s centroid must be a data point", m)
				}
			}
		}
	})

	t.Run("InvalidClusterCount", func(t *testing.T) {
		for _, k := range []int{0, -1, len(data) + 1} {
			_, err := Initialize(Random, k, data, nil, &scripted{}, Recover)
			var countErr *InvalidClusterCountError
			require.ErrorAs(t, err, &countErr)
			assert.Equal(t, k, countErr.K)
			assert.Equal(t, len(data), countErr.N)
		}
	})

	t.Run("NoData", func(t *testing.T) {
		_, err := Initialize(Random, 1, nil, nil, &scripted{}, Recover)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("RandomWithReplacement", func(t *testing.T) {
		centroids, err := Initialize(Random, 3, pts([2]float64{0, 0}, [2]float64{1, 1}, [2]float64{2, 2}), nil,
			&scripted{ints: []int{1, 1, 2}}, Recover)
		require.NoError(t, err)
		assert.Equal(t, pts([2]float64{1, 1}, [2]float64{1, 1}, [2]float64{2, 2}), centroids)
	})

	t.Run("Farthest", func(t *testing.T) {
		square := pts([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{1, 0}, [2]float64{1, 1})
		centroids, err := Initialize(Farthest, 2, square, nil, &scripted{ints: []int{0}}, Recover)
		require.NoError(t, err)
		assert.Equal(t, pts([2]float64{0, 0}, [2]float64{1, 1}), centroids)
	})

	t.Run("FarthestTiesFirstOccurrence", func(t *testing.T) {
		line := pts([2]float64{0.5, 0}, [2]float64{0, 0}, [2]float64{1, 0})
		centroids, err := Initialize(Farthest, 2, line, nil, &scripted{ints: []int{0}}, Recover)
		require.NoError(t, err)
		assert.Equal(t, Point{X: 0, Y: 0}, centroids[1])
	})

	t.Run("KMeansPlusPlusWeighted", func(t *testing.T) {
		data := pts([2]float64{0, 0}, [2]float64{0, 0}, [2]float64{0.1, 0}, [2]float64{1, 0})
		// weights after picking index 0: 0, 0, 0.1, 1; sum 1.1
		centroids, err := Initialize(KMeansPlusPlus, 2, data, nil,
			&scripted{ints: []int{0}, floats: []float64{0.05}}, Recover)
		require.NoError(t, err)
		assert.Equal(t, Point{X: 0.1, Y: 0}, centroids[1])

		centroids, err = Initialize(KMeansPlusPlus, 2, data, nil,
			&scripted{ints: []int{0}, floats: []float64{0.5}}, Recover)
		require.NoError(t, err)
		assert.Equal(t, Point{X: 1, Y: 0}, centroids[1])
	})

	t.Run("KMeansPlusPlusSkipsZeroWeight", func(t *testing.T) {
		data := pts([2]float64{0, 0}, [2]float64{1, 1})
		centroids, err := Initialize(KMeansPlusPlus, 2, data, nil,
			&scripted{ints: []int{0}, floats: []float64{0}}, Recover)
		require.NoError(t, err)
		assert.Equal(t, Point{X: 1, Y: 1}, centroids[1])
	})

	t.Run("DegenerateSeeding", func(t *testing.T) {
		same := pts([2]float64{0.5, 0.5}, [2]float64{0.5, 0.5}, [2]float64{0.5, 0.5})

		centroids, err := Initialize(KMeansPlusPlus, 3, same, nil, &scripted{}, Recover)
		require.NoError(t, err)
		assert.Len(t, centroids, 3)

		_, err = Initialize(KMeansPlusPlus, 3, same, nil, &scripted{}, Fail)
		var seedErr *DegenerateSeedingError
		require.ErrorAs(t, err, &seedErr)
		assert.Equal(t, 1, seedErr.Chosen)
	})

	t.Run("Manual", func(t *testing.T) {
		buffer := pts([2]float64{0.2, 0.2}, [2]float64{0.8, 0.8})
		centroids, err := Initialize(Manual, 2, data, buffer, &scripted{}, Recover)
		require.NoError(t, err)
		assert.Equal(t, buffer, centroids)

		centroids[0].X = 42
		assert.Equal(t, 0.2, buffer[0].X, "manual buffer must be copied")
	})

	t.Run("ManualMismatch", func(t *testing.T) {
		_, err := Initialize(Manual, 3, data, pts([2]float64{0.2, 0.2}), &scripted{}, Recover)
		var mismatch *ManualCentroidMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 3, mismatch.K)
		assert.Equal(t, 1, mismatch.Got)
		assert.True(t, IsInputError(err))
	})
}

func TestAssign(t *testing.T) {
	data := uniformData(100, 7)
	centroids := uniformData(5, 8)

	labels := Assign(centroids, data)
	require.Len(t, labels, len(data))
	for i, l := range labels {
		require.GreaterOrEqual(t, l, 0)
		require.Less(t, l, len(centroids))
		for _, c := range centroids {
			assert.LessOrEqual(t, Distance(data[i], centroids[l]), Distance(data[i], c))
		}
	}

	t.Run("TiesLowestIndex", func(t *testing.T) {
		labels := Assign(pts([2]float64{0, 0}, [2]float64{2, 0}), pts([2]float64{1, 0}))
		assert.Equal(t, []int{0}, labels)
	})
}

func TestRecompute(t *testing.T) {
	t.Run("Mean", func(t *testing.T) {
		data := pts([2]float64{0.1, 0.2}, [2]float64{0.3, 0.4}, [2]float64{0.9, 0.9}, [2]float64{0.5, 0.9})
		labels := []int{0, 0, 1, 0}
		centroids, empty, err := Recompute(labels, data, make([]Point, 2), Recover)
		require.NoError(t, err)
		assert.Empty(t, empty)
		want := pts([2]float64{0.3, 0.5}, [2]float64{0.9, 0.9})
		if diff := cmp.Diff(want, centroids, approx); diff != "" {
			t.Errorf("centroids mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("EmptyClusterKeepsPrevious", func(t *testing.T) {
		prev := pts([2]float64{0, 0}, [2]float64{10, 10})
		data := pts([2]float64{0, 0}, [2]float64{0, 0.1})
		labels := Assign(prev, data)
		assert.Equal(t, []int{0, 0}, labels)

		centroids, empty, err := Recompute(labels, data, prev, Recover)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, empty)
		assert.Equal(t, Point{X: 10, Y: 10}, centroids[1])
		assert.False(t, math.IsNaN(centroids[0].Y))
		assert.InDelta(t, 0.05, centroids[0].Y, 1e-9)
	})

	t.Run("EmptyClusterFail", func(t *testing.T) {
		prev := pts([2]float64{0, 0}, [2]float64{10, 10})
		_, _, err := Recompute([]int{0, 0}, pts([2]float64{0, 0}, [2]float64{0, 0.1}), prev, Fail)
		var emptyErr *EmptyClusterError
		require.ErrorAs(t, err, &emptyErr)
		assert.Equal(t, []int{1}, emptyErr.Clusters)
	})

	t.Run("BadLabels", func(t *testing.T) {
		data := pts([2]float64{0, 0})
		_, _, err := Recompute([]int{2}, data, make([]Point, 2), Recover)
		assert.ErrorIs(t, err, ErrLabelOutOfRange)
		_, _, err = Recompute([]int{Unassigned}, data, make([]Point, 2), Recover)
		assert.ErrorIs(t, err, ErrLabelOutOfRange)
		_, _, err = Recompute([]int{0, 0}, data, make([]Point, 2), Recover)
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})
}

func TestStable(t *testing.T) {
	a := pts([2]float64{0.1, 0.2})
	b := pts([2]float64{0.1 + 1e-12, 0.2})
	assert.True(t, Stable(a, b, DefaultTolerance))
	assert.False(t, Stable(a, b, 0))
	assert.True(t, Stable(a, a, 0))
	assert.False(t, Stable(a, pts([2]float64{0.2, 0.2}), DefaultTolerance))
	assert.False(t, Stable(a, nil, DefaultTolerance))
}

func TestInertia(t *testing.T) {
	centroids := pts([2]float64{0, 0})
	data := pts([2]float64{3, 4}, [2]float64{0, 1})
	assert.InDelta(t, 26.0, Inertia(centroids, data, []int{0, 0}), 1e-12)
	assert.InDelta(t, 25.0, Inertia(centroids, data, []int{0, Unassigned}), 1e-12)
}
