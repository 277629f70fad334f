package aggregate

import (
	"sort"
	"sync"

	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// Manager keeps one streaming aggregate per sensor. The writer stage feeds
// it every batch it appends, so the run summary reflects exactly the
// records that reached the output files.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	percentileEnabled  bool
	percentileAccuracy float64

	// Active aggregates keyed by sensor ID
	aggregates map[string]*StreamingAggregate

	// Statistics
	stats ManagerStats
}

// ManagerStats holds statistics for the manager.
type ManagerStats struct {
	Sensors          int64
	RecordsProcessed int64
	RecordsSkipped   int64
	BatchesProcessed int64
}

// NewManager creates a new aggregate manager.
func NewManager(percentileEnabled bool) *Manager {
	m := NewManagerWithAccuracy(0)
	m.percentileEnabled = percentileEnabled
	return m
}

// NewManagerWithAccuracy creates a manager with custom percentile accuracy.
// A non-positive accuracy uses the default.
func NewManagerWithAccuracy(accuracy float64) *Manager {
	return &Manager{
		percentileEnabled:  true,
		percentileAccuracy: accuracy,
		aggregates:         make(map[string]*StreamingAggregate),
	}
}

// Process adds a record to its sensor's aggregate.
func (m *Manager) Process(r *types.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.process(r)
}

func (m *Manager) process(r *types.Record) {
	if !r.Finite() {
		m.stats.RecordsSkipped++
		return
	}

	agg, exists := m.aggregates[r.SensorID]
	if !exists {
		agg = m.createAggregate(r.SensorID, r.SensorType)
		m.aggregates[r.SensorID] = agg
	}

	agg.AddRecord(r)
	m.stats.RecordsProcessed++
}

// ProcessBatch processes every record of a batch.
func (m *Manager) ProcessBatch(b *types.Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range b.Records {
		m.process(&b.Records[i])
	}
	m.stats.BatchesProcessed++
}

// Results returns the statistics of every sensor, sorted by sensor ID.
func (m *Manager) Results() []types.SensorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.SensorStats, 0, len(m.aggregates))
	for _, agg := range m.aggregates {
		out = append(out, agg.Result())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SensorID < out[j].SensorID })
	return out
}

// Result returns the statistics of one sensor.
func (m *Manager) Result(sensorID string) (types.SensorStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agg, ok := m.aggregates[sensorID]
	if !ok {
		return types.SensorStats{}, false
	}
	return agg.Result(), true
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.stats
	stats.Sensors = int64(len(m.aggregates))
	return stats
}

// ActiveCount returns the number of sensors seen.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.aggregates)
}

// createAggregate creates a new aggregate with the manager's settings.
func (m *Manager) createAggregate(sensorID, sensorType string) *StreamingAggregate {
	if m.percentileEnabled && m.percentileAccuracy > 0 {
		return NewWithAccuracy(sensorID, sensorType, m.percentileAccuracy)
	}
	return New(sensorID, sensorType, m.percentileEnabled)
}
