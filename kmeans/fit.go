package kmeans

import "fmt"

// DefaultNInit is the number of restarts Fit runs for the randomized methods.
const DefaultNInit = 10

// Request describes a full clustering run.
type Request struct {
	Method InitMethod
	// K is the cluster count. For Manual, 0 means len(Centroids).
	K int
	// Centroids is the manual centroid buffer.
	Centroids []Point
	// NInit is the number of restarts for Random and KMeansPlusPlus.
	// 0 means DefaultNInit. Farthest and Manual always run once.
	NInit int
}

// Result is the outcome of Fit.
type Result struct {
	Centroids []Point `json:"centroids"`
	Labels    []int   `json:"labels"`
	Inertia   float64 `json:"inertia"`
	Steps     int     `json:"steps"`
	// History holds the inertia after every update step of the winning run.
	History []float64 `json:"history,omitempty"`
}

// Fit runs the stepwise algorithm to convergence and returns the run with the
// lowest inertia across restarts. The same options as NewSession apply; all
// restarts share the configured random source.
func Fit(data []Point, req Request, optFns ...Option) (*Result, error) {
	k := req.K
	if req.Method == Manual && k == 0 {
		k = len(req.Centroids)
	}

	runs := req.NInit
	switch {
	case req.Method == Farthest || req.Method == Manual:
		runs = 1
	case runs < 1:
		runs = DefaultNInit
	}

	o := applyOptions(optFns)
	// Full slice expression: never write into the caller's backing array.
	optFns = append(optFns[:len(optFns):len(optFns)], WithSource(o.source))

	var best *Result
	for i := 0; i < runs; i++ {
		res, err := fitOnce(data, k, req, optFns)
		if err != nil {
			return nil, err
		}
		o.logger.Debug("run %d/%d: inertia %.6f after %d steps", i+1, runs, res.Inertia, res.Steps)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func fitOnce(data []Point, k int, req Request, optFns []Option) (*Result, error) {
	s, err := NewSession(data, k, req.Method, optFns...)
	if err != nil {
		return nil, err
	}
	s.SetManualCentroids(req.Centroids)

	var history []float64
	for {
		snap, err := s.Step()
		if err != nil {
			return nil, err
		}
		if snap.Phase == Updating {
			history = append(history, snap.Inertia)
		}
		if snap.Converged {
			return &Result{
				Centroids: snap.Centroids,
				Labels:    snap.Labels,
				Inertia:   snap.Inertia,
				Steps:     snap.Step,
				History:   history,
			}, nil
		}
		if snap.Step >= s.opts.maxSteps {
			return nil, fmt.Errorf("%w: %d steps", ErrMaxSteps, s.opts.maxSteps)
		}
	}
}
