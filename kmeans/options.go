package kmeans

import (
	"math/rand"
	"time"
)

// DefaultTolerance is the largest coordinate movement still considered stable.
const DefaultTolerance = 1e-9

// DefaultMaxSteps bounds Run. Each step is half an iteration.
const DefaultMaxSteps = 1000

// Source is the random source used by the initializers. *rand.Rand implements it.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// Logger receives diagnostics from a Session.
type Logger interface {
	Debug(format string, v ...interface{})
	Warn(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

// FaultPolicy selects how recoverable numeric faults are handled.
type FaultPolicy int

const (
	// Recover applies the fallback: an empty cluster keeps its previous
	// centroid, degenerate k-means++ seeding picks a uniform random point.
	Recover FaultPolicy = iota
	// Fail surfaces the fault as a typed error.
	Fail
)

func (p FaultPolicy) String() string {
	switch p {
	case Recover:
		return "recover"
	case Fail:
		return "fail"
	}
	return "unknown"
}

// ParseFaultPolicy parses "recover" or "fail". The empty string means Recover.
func ParseFaultPolicy(s string) (FaultPolicy, bool) {
	switch s {
	case "", "recover":
		return Recover, true
	case "fail":
		return Fail, true
	}
	return Recover, false
}

type options struct {
	source       Source
	tolerance    float64
	strict       bool
	emptyCluster FaultPolicy
	seeding      FaultPolicy
	maxSteps     int
	logger       Logger
}

func defaultOptions() options {
	return options{
		tolerance: DefaultTolerance,
		maxSteps:  DefaultMaxSteps,
		logger:    nopLogger{},
	}
}

func applyOptions(optFns []Option) options {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	if o.source == nil {
		o.source = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// Option configures a Session or Fit.
type Option func(*options)

// WithSource sets the random source used for initialization.
func WithSource(src Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithSeed uses a *rand.Rand seeded with seed.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.source = rand.New(rand.NewSource(seed))
	}
}

// WithTolerance sets the convergence tolerance. Negative values are ignored.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		if tol >= 0 {
			o.tolerance = tol
		}
	}
}

// WithStrictConvergence requires recomputed centroids to be bit-identical.
func WithStrictConvergence() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithEmptyClusterPolicy sets how update steps treat clusters without points.
func WithEmptyClusterPolicy(p FaultPolicy) Option {
	return func(o *options) {
		o.emptyCluster = p
	}
}

// WithSeedingPolicy sets how k-means++ treats a zero total weight.
func WithSeedingPolicy(p FaultPolicy) Option {
	return func(o *options) {
		o.seeding = p
	}
}

// WithMaxSteps bounds the number of steps Run may take. Values < 1 are ignored.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// WithLogger sets the diagnostics logger. Nil restores the discarding logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l == nil {
			l = nopLogger{}
		}
		o.logger = l
	}
}
