package kmeans

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned when an operation needs at least one point.
	ErrNoData = errors.New("no data provided")

	// ErrUnknownInitMethod is returned for an unrecognised initialization method.
	ErrUnknownInitMethod = errors.New("unknown init method")

	// ErrLabelOutOfRange is returned when a label does not name a centroid.
	ErrLabelOutOfRange = errors.New("label out of range")

	// ErrLengthMismatch is returned when labels and data differ in length.
	ErrLengthMismatch = errors.New("labels and data length mismatch")

	// ErrMaxSteps is returned when Run gives up before convergence.
	ErrMaxSteps = errors.New("maximum number of steps reached before convergence")
)

// InvalidClusterCountError indicates a cluster count outside [1, len(data)].
type InvalidClusterCountError struct {
	K int
	N int
}

func (e *InvalidClusterCountError) Error() string {
	return fmt.Sprintf("invalid cluster count %d for %d points", e.K, e.N)
}

// ManualCentroidMismatchError indicates that the manual centroid buffer does
// not hold exactly k centroids.
type ManualCentroidMismatchError struct {
	K   int
	Got int
}

func (e *ManualCentroidMismatchError) Error() string {
	return fmt.Sprintf("manual initialization needs %d centroids, got %d", e.K, e.Got)
}

// EmptyClusterError lists the clusters that received no points during an
// update step. It is only returned under the Fail policy.
type EmptyClusterError struct {
	Clusters []int
}

func (e *EmptyClusterError) Error() string {
	return fmt.Sprintf("empty clusters during update: %v", e.Clusters)
}

// DegenerateSeedingError indicates that k-means++ seeding found no point with
// positive weight. It is only returned under the Fail policy.
type DegenerateSeedingError struct {
	// Chosen is the number of centroids picked before seeding stalled.
	Chosen int
}

func (e *DegenerateSeedingError) Error() string {
	return fmt.Sprintf("degenerate k-means++ seeding after %d centroids: all points coincide with chosen centroids", e.Chosen)
}

// IsInputError reports whether err is caused by caller input that can be
// corrected and retried.
func IsInputError(err error) bool {
	var (
		countErr  *InvalidClusterCountError
		manualErr *ManualCentroidMismatchError
		emptyErr  *EmptyClusterError
		seedErr   *DegenerateSeedingError
	)
	switch {
	case errors.As(err, &countErr), errors.As(err, &manualErr),
		errors.As(err, &emptyErr), errors.As(err, &seedErr):
		return true
	case errors.Is(err, ErrNoData), errors.Is(err, ErrUnknownInitMethod),
		errors.Is(err, ErrLabelOutOfRange), errors.Is(err, ErrLengthMismatch):
		return true
	}
	return false
}
