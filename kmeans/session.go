package kmeans

import (
	"fmt"
)

// Phase is the half-iteration a Session last performed.
type Phase int

const (
	Uninitialized Phase = iota
	Assigning
	Updating
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Assigning:
		return "assigning"
	case Updating:
		return "updating"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// runState is the running state of one clustering run.
type runState struct {
	Step      int
	Centroids []Point
	Labels    []int
}

// Snapshot is a copy of a Session's state safe to hand to a renderer.
type Snapshot struct {
	Phase     Phase   `json:"phase"`
	Step      int     `json:"step"`
	Centroids []Point `json:"centroids"`
	Labels    []int   `json:"labels"`
	Converged bool    `json:"converged"`
	Inertia   float64 `json:"inertia"`
	// EmptyClusters lists the clusters that kept their previous centroid in
	// the last update step.
	EmptyClusters []int `json:"empty_clusters,omitempty"`
}

// Session drives k-means one half-iteration at a time: even steps assign
// labels, odd steps recompute centroids. A Session is not safe for
// concurrent use.
type Session struct {
	data   []Point
	k      int
	method InitMethod
	opts   options

	manual []Point
	state  *runState
	phase  Phase
	empty  []int
}

// NewSession validates k against data and returns an uninitialized session.
// data is read, never modified.
func NewSession(data []Point, k int, method InitMethod, optFns ...Option) (*Session, error) {
	if len(data) == 0 {
		return nil, ErrNoData
	}
	if err := ValidateClusterCount(k, len(data)); err != nil {
		return nil, err
	}
	if _, ok := initMethodNames[method]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownInitMethod, int(method))
	}
	return &Session{
		data:   data,
		k:      k,
		method: method,
		opts:   applyOptions(optFns),
	}, nil
}

func (s *Session) K() int             { return s.k }
func (s *Session) Method() InitMethod { return s.method }
func (s *Session) Data() []Point      { return s.data }
func (s *Session) Phase() Phase       { return s.phase }

// AddManualCentroid appends p to the manual centroid buffer.
func (s *Session) AddManualCentroid(p Point) {
	s.manual = append(s.manual, p)
}

// SetManualCentroids replaces the manual centroid buffer.
func (s *Session) SetManualCentroids(ps []Point) {
	s.manual = clonePoints(ps)
}

// ManualCentroids returns a copy of the manual centroid buffer.
func (s *Session) ManualCentroids() []Point {
	return clonePoints(s.manual)
}

// Step performs one half-iteration, initializing the state first if needed.
// If initialization fails the session stays uninitialized.
func (s *Session) Step() (Snapshot, error) {
	if s.state == nil {
		centroids, fallbacks, err := initialize(s.method, s.k, s.data, s.manual, s.opts.source, s.opts.seeding)
		if err != nil {
			return s.Snapshot(), err
		}
		if fallbacks > 0 {
			s.opts.logger.Warn("k-means++ seeding fell back to uniform picks %d times", fallbacks)
		}
		labels := make([]int, len(s.data))
		for i := range labels {
			labels[i] = Unassigned
		}
		s.state = &runState{Centroids: centroids, Labels: labels}
		s.opts.logger.Debug("initialized %d centroids with %s", s.k, s.method)
	}

	if s.state.Step%2 == 0 {
		s.state.Labels = Assign(s.state.Centroids, s.data)
		s.phase = Assigning
		s.empty = nil
	} else {
		centroids, empty, err := Recompute(s.state.Labels, s.data, s.state.Centroids, s.opts.emptyCluster)
		if err != nil {
			return s.Snapshot(), err
		}
		if len(empty) > 0 {
			s.opts.logger.Warn("step %d: clusters %v are empty, keeping previous centroids", s.state.Step, empty)
		}
		s.state.Centroids = centroids
		s.phase = Updating
		s.empty = empty
	}
	s.state.Step++
	s.opts.logger.Debug("step %d (%s) done", s.state.Step, s.phase)
	return s.Snapshot(), nil
}

// Converged reports whether recomputing centroids would leave them in place.
// Labels are taken from the current centroids, so after an update step the
// check looks one full iteration ahead instead of comparing the centroids
// with the mean of the labels they were just built from. It never changes
// the state.
func (s *Session) Converged() bool {
	if s.state == nil {
		return false
	}
	labels := Assign(s.state.Centroids, s.data)
	next, _, err := Recompute(labels, s.data, s.state.Centroids, Recover)
	if err != nil {
		return false
	}
	tol := s.opts.tolerance
	if s.opts.strict {
		tol = 0
	}
	return Stable(s.state.Centroids, next, tol)
}

// Run steps until Converged reports true. It always takes at least one step
// and checks convergence only after a step.
func (s *Session) Run() (Snapshot, error) {
	for i := 0; i < s.opts.maxSteps; i++ {
		snap, err := s.Step()
		if err != nil {
			return snap, err
		}
		if snap.Converged {
			return snap, nil
		}
	}
	return s.Snapshot(), fmt.Errorf("%w: %d steps", ErrMaxSteps, s.opts.maxSteps)
}

// Reset discards the state and the manual centroid buffer.
func (s *Session) Reset() {
	s.state = nil
	s.manual = nil
	s.phase = Uninitialized
	s.empty = nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	if s.state == nil {
		return Snapshot{Phase: Uninitialized}
	}
	labels := make([]int, len(s.state.Labels))
	copy(labels, s.state.Labels)
	return Snapshot{
		Phase:         s.phase,
		Step:          s.state.Step,
		Centroids:     clonePoints(s.state.Centroids),
		Labels:        labels,
		Converged:     s.Converged(),
		Inertia:       Inertia(s.state.Centroids, s.data, s.state.Labels),
		EmptyClusters: append([]int(nil), s.empty...),
	}
}
