// Package logging provides categorized structured logging for gpthome.
// Each subsystem logs through its own category, which becomes a named zap
// logger. Until Initialize is called every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup and shutdown
	CategoryWake       Category = "wake"       // Wake-cycle orchestration
	CategoryContext    Category = "context"    // Context building
	CategoryTools      Category = "tools"      // Tool execution
	CategoryTactile    Category = "tactile"    // Subprocess execution
	CategoryStore      Category = "store"      // SQLite store
	CategorySafety     Category = "safety"     // Content-safety filter
	CategoryWeather    Category = "weather"    // Weather provider
	CategoryAPI        Category = "api"        // Model API calls
	CategoryServer     Category = "server"     // HTTP surface
	CategoryScheduler  Category = "scheduler"  // Wake scheduling
	CategoryEcho       Category = "echo"       // Echo generation
	CategoryAuth       Category = "auth"       // Admin authentication
	CategoryPerception Category = "perception" // Model client plumbing
)

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // optional output file, stderr when empty
	Categories map[string]bool // per-category toggles, all enabled when nil
}

// Logger is a category-scoped logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
)

// Initialize builds the process logger from cfg. It may be called again to
// reconfigure; previously returned loggers keep their old core.
func Initialize(cfg Config) error {
	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(defaultString(cfg.Level, "info"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		zcfg.OutputPaths = []string{cfg.File}
	}

	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	install(logger, cfg.Categories)
	return nil
}

// InitializeWithCore installs a logger around an existing core. Tests use it
// with an observer core to assert on log output.
func InitializeWithCore(core zapcore.Core) {
	install(zap.New(core), nil)
}

// Base returns the root zap logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func install(logger *zap.Logger, cats map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	base = logger
	categories = cats
	loggers = make(map[Category]*Logger)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Base().Sync()
}

// IsCategoryEnabled reports whether a category has been switched off in config.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, ok := categories[string(category)]
	return !ok || enabled
}

// Get returns the logger for a category.
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
	z := zap.NewNop()
	enabled, listed := categories[string(category)]
	if !listed || enabled {
		z = base.Named(string(category))
	}
	l = &Logger{category: category, sugar: z.Sugar()}
	loggers[category] = l
	return l
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs at error level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key/value fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Zap exposes the underlying logger for libraries that want one.
func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

// =============================================================================
// CATEGORY HELPERS
// =============================================================================

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

func Wake(format string, args ...interface{}) {
	Get(CategoryWake).Info(format, args...)
}

func WakeDebug(format string, args ...interface{}) {
	Get(CategoryWake).Debug(format, args...)
}

func WakeWarn(format string, args ...interface{}) {
	Get(CategoryWake).Warn(format, args...)
}

func WakeError(format string, args ...interface{}) {
	Get(CategoryWake).Error(format, args...)
}

func Context(format string, args ...interface{}) {
	Get(CategoryContext).Info(format, args...)
}

func ContextDebug(format string, args ...interface{}) {
	Get(CategoryContext).Debug(format, args...)
}

func Tools(format string, args ...interface{}) {
	Get(CategoryTools).Info(format, args...)
}

func ToolsDebug(format string, args ...interface{}) {
	Get(CategoryTools).Debug(format, args...)
}

func ToolsWarn(format string, args ...interface{}) {
	Get(CategoryTools).Warn(format, args...)
}

func Tactile(format string, args ...interface{}) {
	Get(CategoryTactile).Info(format, args...)
}

func TactileDebug(format string, args ...interface{}) {
	Get(CategoryTactile).Debug(format, args...)
}

func TactileWarn(format string, args ...interface{}) {
	Get(CategoryTactile).Warn(format, args...)
}

func TactileError(format string, args ...interface{}) {
	Get(CategoryTactile).Error(format, args...)
}

func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

func StoreWarn(format string, args ...interface{}) {
	Get(CategoryStore).Warn(format, args...)
}

func Safety(format string, args ...interface{}) {
	Get(CategorySafety).Info(format, args...)
}

func SafetyWarn(format string, args ...interface{}) {
	Get(CategorySafety).Warn(format, args...)
}

func Weather(format string, args ...interface{}) {
	Get(CategoryWeather).Info(format, args...)
}

func WeatherWarn(format string, args ...interface{}) {
	Get(CategoryWeather).Warn(format, args...)
}

func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

func Server(format string, args ...interface{}) {
	Get(CategoryServer).Info(format, args...)
}

func ServerWarn(format string, args ...interface{}) {
	Get(CategoryServer).Warn(format, args...)
}

func Scheduler(format string, args ...interface{}) {
	Get(CategoryScheduler).Info(format, args...)
}

func SchedulerWarn(format string, args ...interface{}) {
	Get(CategoryScheduler).Warn(format, args...)
}

func Echo(format string, args ...interface{}) {
	Get(CategoryEcho).Info(format, args...)
}

func EchoWarn(format string, args ...interface{}) {
	Get(CategoryEcho).Warn(format, args...)
}

func Auth(format string, args ...interface{}) {
	Get(CategoryAuth).Info(format, args...)
}

func AuthWarn(format string, args ...interface{}) {
	Get(CategoryAuth).Warn(format, args...)
}

func Perception(format string, args ...interface{}) {
	Get(CategoryPerception).Info(format, args...)
}

func PerceptionDebug(format string, args ...interface{}) {
	Get(CategoryPerception).Debug(format, args...)
}

func PerceptionWarn(format string, args ...interface{}) {
	Get(CategoryPerception).Warn(format, args...)
}

// =============================================================================
// TIMING
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
