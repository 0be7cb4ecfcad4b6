// Package logging provides config-driven categorized logging for catmig.
// Every category is a named child of one zap logger. Logging is controlled by
// debug_mode in the config file: when false every category is a no-op.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup and config loading
	CategoryEngine  Category = "engine"  // Migration dispatch and assembly
	CategoryComma   Category = "comma"   // Comma category construction
	CategorySolver  Category = "solver"  // Native limit/colimit solver
	CategoryDatalog Category = "datalog" // Mangle-backed limit solver
	CategoryStore   Category = "store"   // SQLite instance store
	CategoryLoader  Category = "loader"  // YAML documents
	CategoryWatch   Category = "watch"   // File watcher
)

// Config mirrors config.LoggingConfig to avoid circular imports.
type Config struct {
	DebugMode  bool
	Level      string
	Format     string // "console" or "json"
	Categories map[string]bool
	Output     []string
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	config  Config
	loggers = make(map[Category]*Logger)
	nop     = zap.NewNop().Sugar()
)

// Initialize builds the root logger from cfg. Without debug mode every
// category stays silent.
func Initialize(cfg Config) error {
	if !cfg.DebugMode {
		SetLogger(zap.NewNop(), cfg)
		return nil
	}

	level, err := zapcore.ParseLevel(defaultString(cfg.Level, "info"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Format != "json" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.Output) > 0 {
		zc.OutputPaths = cfg.Output
	}
	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	SetLogger(l, cfg)

	boot := Get(CategoryBoot)
	boot.Info("logging initialized: level=%s format=%s", level, defaultString(cfg.Format, "console"))
	if len(cfg.Categories) > 0 {
		enabled := 0
		for cat, on := range cfg.Categories {
			if on {
				enabled++
			}
			boot.Debug("category '%s': %v", cat, on)
		}
		boot.Debug("enabled categories: %d/%d", enabled, len(cfg.Categories))
	}
	return nil
}

// SetLogger replaces the root logger. Tests use it with an observer core.
func SetLogger(l *zap.Logger, cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	config = cfg
	loggers = make(map[Category]*Logger)
}

// Root returns the root zap logger.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsDebugMode returns whether logging is enabled at all.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories missing from the filter are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabled(category)
}

func categoryEnabled(category Category) bool {
	if !config.DebugMode {
		return false
	}
	enabled, exists := config.Categories[string(category)]
	return !exists || enabled
}

// Get returns (or creates) the logger for a category.
func Get(category Category) *Logger {
	mu.RLock()
	l, ok := loggers[category]
	mu.RUnlock()
	if ok {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l = &Logger{category: category, sugar: nop}
	if categoryEnabled(category) {
		l.sugar = base.Named(string(category)).Sugar()
	}
	loggers[category] = l
	return l
}

// With returns a logger carrying extra key/value context.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(format string, args ...any) { l.sugar.Debugf(format, args...) }

func (l *Logger) Info(format string, args ...any) { l.sugar.Infof(format, args...) }

func (l *Logger) Warn(format string, args ...any) { l.sugar.Warnf(format, args...) }

func (l *Logger) Error(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered entries (call at shutdown).
func Sync() {
	_ = Root().Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops if the category is disabled
// =============================================================================

func Boot(format string, args ...any)      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...any) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...any)  { Get(CategoryBoot).Warn(format, args...) }

func Engine(format string, args ...any)      { Get(CategoryEngine).Info(format, args...) }
func EngineDebug(format string, args ...any) { Get(CategoryEngine).Debug(format, args...) }
func EngineError(format string, args ...any) { Get(CategoryEngine).Error(format, args...) }

func Comma(format string, args ...any)      { Get(CategoryComma).Info(format, args...) }
func CommaDebug(format string, args ...any) { Get(CategoryComma).Debug(format, args...) }

func SolverDebug(format string, args ...any) { Get(CategorySolver).Debug(format, args...) }

func Datalog(format string, args ...any)      { Get(CategoryDatalog).Info(format, args...) }
func DatalogDebug(format string, args ...any) { Get(CategoryDatalog).Debug(format, args...) }
func DatalogWarn(format string, args ...any)  { Get(CategoryDatalog).Warn(format, args...) }

func Store(format string, args ...any)      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...any) { Get(CategoryStore).Debug(format, args...) }
func StoreError(format string, args ...any) { Get(CategoryStore).Error(format, args...) }

func LoaderDebug(format string, args ...any) { Get(CategoryLoader).Debug(format, args...) }

func Watch(format string, args ...any)     { Get(CategoryWatch).Info(format, args...) }
func WatchWarn(format string, args ...any) { Get(CategoryWatch).Warn(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
