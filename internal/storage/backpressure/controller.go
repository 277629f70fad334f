// Package backpressure classifies the fill level of the batch queue
// between the generation and writer stages.
//
// The queue itself blocks the producer when full; the controller never
// drops data. It reports level changes so slow storage is visible in logs
// and metrics.
package backpressure

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtxerr/telemetrygen/config"
)

// Level represents the current backpressure level.
type Level int

const (
	// LevelNormal - writer keeps up with generation.
	LevelNormal Level = iota

	// LevelWarning - batches are accumulating.
	LevelWarning

	// LevelCritical - the writer is falling behind.
	LevelCritical

	// LevelSaturated - the queue is full; generation waits on every push.
	LevelSaturated
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	case LevelSaturated:
		return "saturated"
	default:
		return "unknown"
	}
}

// Gauge reports a usage ratio in [0, 1]. *buffer.Queue implements it.
type Gauge interface {
	UsageRatio() float64
}

// Thresholds are usage ratios at which a level is entered.
type Thresholds struct {
	Warning   float64
	Critical  float64
	Saturated float64
}

// Config holds controller settings.
type Config struct {
	Enabled    bool
	Thresholds Thresholds
	Hysteresis float64
	Cooldown   time.Duration
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Thresholds: Thresholds{
			Warning:   config.DefaultBackpressureWarning,
			Critical:  config.DefaultBackpressureCritical,
			Saturated: config.DefaultBackpressureSaturated,
		},
		Hysteresis: config.DefaultBackpressureHysteresis,
		Cooldown:   config.DefaultBackpressureCooldown,
	}
}

// Controller tracks the backpressure level of a gauge.
type Controller struct {
	mu sync.RWMutex

	config Config
	gauge  Gauge

	// Current state
	level     atomic.Int32
	lastCheck time.Time
	lastLevel Level

	// Statistics
	stats Stats

	// Level change callback
	onLevelChange func(old, new Level)
}

// Stats holds backpressure statistics.
type Stats struct {
	Checks         int64
	LevelChanges   int64
	WarningCount   int64
	CriticalCount  int64
	SaturatedCount int64
	PeakUsage      float64
}

// New creates a new backpressure controller.
func New(cfg Config, gauge Gauge) *Controller {
	return &Controller{
		config: cfg,
		gauge:  gauge,
	}
}

// SetOnLevelChange sets the callback for level changes.
func (c *Controller) SetOnLevelChange(fn func(old, new Level)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLevelChange = fn
}

// Check evaluates current conditions and updates the level.
// It is called by the producer after every push.
func (c *Controller) Check() Level {
	if !c.config.Enabled {
		return LevelNormal
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	// Respect cooldown
	if !c.lastCheck.IsZero() && now.Sub(c.lastCheck) < c.config.Cooldown {
		return Level(c.level.Load())
	}

	c.lastCheck = now
	c.stats.Checks++

	usage := c.gauge.UsageRatio()
	if usage > c.stats.PeakUsage {
		c.stats.PeakUsage = usage
	}

	// Determine new level with hysteresis
	newLevel := c.determineLevel(usage)

	if newLevel != c.lastLevel {
		c.setLevel(newLevel)
	}

	return newLevel
}

// determineLevel determines the backpressure level based on usage.
func (c *Controller) determineLevel(usage float64) Level {
	thresholds := c.config.Thresholds
	hysteresis := c.config.Hysteresis
	currentLevel := c.lastLevel

	// Going up (increasing pressure)
	if usage >= thresholds.Saturated {
		return LevelSaturated
	}
	if usage >= thresholds.Critical {
		return LevelCritical
	}
	if usage >= thresholds.Warning {
		return LevelWarning
	}

	// Going down (decreasing pressure) - apply hysteresis
	if currentLevel >= LevelWarning && usage >= thresholds.Warning-hysteresis {
		return LevelWarning
	}
	return LevelNormal
}

// setLevel updates the current level and fires callback.
func (c *Controller) setLevel(newLevel Level) {
	oldLevel := c.lastLevel
	c.lastLevel = newLevel
	c.level.Store(int32(newLevel))
	c.stats.LevelChanges++

	switch newLevel {
	case LevelWarning:
		c.stats.WarningCount++
	case LevelCritical:
		c.stats.CriticalCount++
	case LevelSaturated:
		c.stats.SaturatedCount++
	}

	if c.onLevelChange != nil {
		c.onLevelChange(oldLevel, newLevel)
	}
}

// CurrentLevel returns the current backpressure level.
func (c *Controller) CurrentLevel() Level {
	return Level(c.level.Load())
}

// Stats returns current statistics.
func (c *Controller) Stats() ControllerStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ControllerStats{
		CurrentLevel:   c.CurrentLevel(),
		Checks:         c.stats.Checks,
		LevelChanges:   c.stats.LevelChanges,
		WarningCount:   c.stats.WarningCount,
		CriticalCount:  c.stats.CriticalCount,
		SaturatedCount: c.stats.SaturatedCount,
		PeakUsage:      c.stats.PeakUsage,
		QueueUsage:     c.gauge.UsageRatio(),
	}
}

// ControllerStats holds controller statistics.
type ControllerStats struct {
	CurrentLevel   Level
	Checks         int64
	LevelChanges   int64
	WarningCount   int64
	CriticalCount  int64
	SaturatedCount int64
	PeakUsage      float64
	QueueUsage     float64
}

// IsEnabled returns whether backpressure tracking is enabled.
func (c *Controller) IsEnabled() bool {
	return c.config.Enabled
}
