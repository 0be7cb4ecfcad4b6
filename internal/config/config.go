package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"catmig/internal/finset"
	"catmig/internal/mangle"
	"catmig/internal/migrate"
)

// Config holds all catmig configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Datalog DatalogConfig `yaml:"datalog"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchConfig   `yaml:"watch"`
}

// EngineConfig configures the migration engine.
type EngineConfig struct {
	Solver            string `yaml:"solver"`      // native, datalog
	Parallelism       int    `yaml:"parallelism"` // 0 = GOMAXPROCS
	StrictSchemaMatch bool   `yaml:"strict_schema_match"`
}

// DatalogConfig configures the Mangle limit backend.
type DatalogConfig struct {
	FactLimit    int    `yaml:"fact_limit"`
	QueryTimeout string `yaml:"query_timeout"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	RecordRuns   bool   `yaml:"record_runs"`
}

// WatchConfig configures `catmig watch`.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// Solver names.
const (
	SolverNative  = "native"
	SolverDatalog = "datalog"
)

// ValidSolvers lists the accepted engine.solver values.
var ValidSolvers = []string{SolverNative, SolverDatalog}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Solver: SolverNative,
		},
		Datalog: DatalogConfig{
			FactLimit:    100000,
			QueryTimeout: "30s",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(".catmig", "catmig.db"),
			RecordRuns:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Watch: WatchConfig{
			Debounce: "200ms",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("CATMIG_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if solver := os.Getenv("CATMIG_SOLVER"); solver != "" {
		c.Engine.Solver = solver
	}
	if level := os.Getenv("CATMIG_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
		c.Logging.DebugMode = true
	}
	if p := os.Getenv("CATMIG_PARALLELISM"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			c.Engine.Parallelism = n
		}
	}
}

// GetQueryTimeout returns the Datalog query timeout as a duration.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Datalog.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetDebounce returns the watch debounce interval as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validSolver := false
	for _, s := range ValidSolvers {
		if c.Engine.Solver == s {
			validSolver = true
			break
		}
	}
	if !validSolver {
		return fmt.Errorf("invalid engine solver: %s (valid: %v)", c.Engine.Solver, ValidSolvers)
	}
	if c.Engine.Parallelism < 0 {
		return fmt.Errorf("engine parallelism must not be negative, got %d", c.Engine.Parallelism)
	}
	if c.Datalog.FactLimit < 0 {
		return fmt.Errorf("datalog fact_limit must not be negative, got %d", c.Datalog.FactLimit)
	}
	for name, d := range map[string]string{"datalog.query_timeout": c.Datalog.QueryTimeout, "watch.debounce": c.Watch.Debounce} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %s (valid: console, json)", c.Logging.Format)
	}
	return nil
}

// MangleConfig returns the Datalog backend configuration.
func (c *Config) MangleConfig() mangle.Config {
	return mangle.Config{
		FactLimit:    c.Datalog.FactLimit,
		QueryTimeout: c.GetQueryTimeout(),
	}
}

// Solver returns the limit/colimit solver named by engine.solver.
func (c *Config) Solver() finset.Solver {
	if c.Engine.Solver == SolverDatalog {
		return mangle.NewSolver(c.MangleConfig())
	}
	return finset.NativeSolver{}
}

// EngineConfig returns the migration engine configuration.
func (c *Config) EngineConfig() migrate.Config {
	return migrate.Config{
		Solver:            c.Solver(),
		Parallelism:       c.Engine.Parallelism,
		StrictSchemaMatch: c.Engine.StrictSchemaMatch,
	}
}
