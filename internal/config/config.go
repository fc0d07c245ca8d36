// Package config loads the kmeansviz TOML configuration.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"kmeansviz/internal/logging"
	"kmeansviz/kmeans"
)

type Config struct {
	Server     Server     `toml:"server"`
	Data       Data       `toml:"data"`
	Clustering Clustering `toml:"clustering"`
	Log        Log        `toml:"log"`
}

type Server struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	// RequestsPerSecond limits the whole API; 0 disables limiting.
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	SessionTTL        Duration `toml:"session_ttl"`
	MaxSessions       int      `toml:"max_sessions"`
}

type Data struct {
	DefaultPoints int `toml:"default_points"`
	MaxPoints     int `toml:"max_points"`
}

type Clustering struct {
	Tolerance    float64 `toml:"tolerance"`
	Strict       bool    `toml:"strict"`
	MaxSteps     int     `toml:"max_steps"`
	NInit        int     `toml:"n_init"`
	EmptyCluster string  `toml:"empty_cluster"`
	Seeding      string  `toml:"seeding"`
}

type Log struct {
	Level string `toml:"level"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() Config {
	return Config{
		Server: Server{
			Addr:              ":3000",
			ReadTimeout:       Duration{10 * time.Second},
			WriteTimeout:      Duration{10 * time.Second},
			ShutdownTimeout:   Duration{5 * time.Second},
			RequestsPerSecond: 50,
			Burst:             100,
			SessionTTL:        Duration{30 * time.Minute},
			MaxSessions:       1000,
		},
		Data: Data{
			DefaultPoints: 100,
			MaxPoints:     1000,
		},
		Clustering: Clustering{
			Tolerance:    kmeans.DefaultTolerance,
			MaxSteps:     kmeans.DefaultMaxSteps,
			NInit:        kmeans.DefaultNInit,
			EmptyCluster: "recover",
			Seeding:      "recover",
		},
		Log: Log{Level: "info"},
	}
}

// Load decodes path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Data.DefaultPoints < 1 || c.Data.MaxPoints < c.Data.DefaultPoints {
		return errors.Errorf("invalid data limits: default_points=%d max_points=%d", c.Data.DefaultPoints, c.Data.MaxPoints)
	}
	if c.Clustering.Tolerance < 0 {
		return errors.Errorf("tolerance must not be negative: %g", c.Clustering.Tolerance)
	}
	if _, ok := kmeans.ParseFaultPolicy(c.Clustering.EmptyCluster); !ok {
		return errors.Errorf("invalid empty_cluster policy %q", c.Clustering.EmptyCluster)
	}
	if _, ok := kmeans.ParseFaultPolicy(c.Clustering.Seeding); !ok {
		return errors.Errorf("invalid seeding policy %q", c.Clustering.Seeding)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log")
	}
	return nil
}

// EngineOptions turns the clustering section into engine options.
func (c Clustering) EngineOptions() []kmeans.Option {
	empty, _ := kmeans.ParseFaultPolicy(c.EmptyCluster)
	seeding, _ := kmeans.ParseFaultPolicy(c.Seeding)
	opts := []kmeans.Option{
		kmeans.WithTolerance(c.Tolerance),
		kmeans.WithMaxSteps(c.MaxSteps),
		kmeans.WithEmptyClusterPolicy(empty),
		kmeans.WithSeedingPolicy(seeding),
	}
	if c.Strict {
		opts = append(opts, kmeans.WithStrictConvergence())
	}
	return opts
}
