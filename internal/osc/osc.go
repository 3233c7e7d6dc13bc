// Package osc provides cached lookup-table oscillators for complex tone
// synthesis. Each table holds exactly one period of a cosine/sine pair at a
// given frequency and sample rate, so per-sample evaluation is an indexed
// load instead of two trig calls.
package osc

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMaxCycle caps table sizes at 4M entries (~64 MB per table). A cycle
// only grows this long when the rounded frequency shares almost no factors
// with the sample rate.
const DefaultMaxCycle = 4 << 20

// ErrTableTooLarge reports a frequency whose exact cycle at the requested
// sample rate would exceed the manager's table size cap.
var ErrTableTooLarge = errors.New("osc: oscillator cycle exceeds table size limit")

// Table is one full oscillation period of precomputed (cos, sin) samples.
// Indexing wraps, so any non-negative sample index reproduces the waveform
// exactly.
type Table struct {
	cos []float64
	sin []float64
}

// Len returns the cycle length in samples. Always >= 1.
func (t *Table) Len() int { return len(t.cos) }

// Sample returns the (cos, sin) pair at sample index i mod cycle length.
func (t *Table) Sample(i int) (float64, float64) {
	i %= len(t.cos)
	return t.cos[i], t.sin[i]
}

type tableKey struct {
	freqHz     float64
	sampleRate int
}

// Manager lazily builds and caches oscillator tables per (frequency, sample
// rate). The cache has no eviction: one process handles one run, and the set
// of distinct tone frequencies is small in practice. Not safe for concurrent
// use; the synthesis core is single-threaded.
type Manager struct {
	maxCycle int
	tables   map[tableKey]*Table
}

// NewManager creates a table manager. maxCycle bounds the cycle length of
// any single table; pass 0 for DefaultMaxCycle.
func NewManager(maxCycle int) *Manager {
	if maxCycle <= 0 {
		maxCycle = DefaultMaxCycle
	}
	return &Manager{
		maxCycle: maxCycle,
		tables:   make(map[tableKey]*Table),
	}
}

// Count returns the number of cached tables.
func (m *Manager) Count() int { return len(m.tables) }

// Lookup returns the cached table for (freqHz, sampleRate), building it on
// first use. Negative frequencies rotate the complex oscillator clockwise
// and get their own tables.
func (m *Manager) Lookup(freqHz float64, sampleRate int) (*Table, error) {
	key := tableKey{freqHz: freqHz, sampleRate: sampleRate}
	if t, ok := m.tables[key]; ok {
		return t, nil
	}

	n, err := m.cycleLength(freqHz, sampleRate)
	if err != nil {
		return nil, err
	}

	t := &Table{
		cos: make([]float64, n),
		sin: make([]float64, n),
	}
	step := 2 * math.Pi * freqHz / float64(sampleRate)
	for i := 0; i < n; i++ {
		phase := step * float64(i)
		t.cos[i] = math.Cos(phase)
		t.sin[i] = math.Sin(phase)
	}

	m.tables[key] = t
	return t, nil
}

// cycleLength finds the shortest sample count after which the waveform
// repeats exactly: sampleRate / gcd(|round(freqHz)|, sampleRate). A zero
// (or sub-half-hertz) frequency degenerates to a single DC sample.
func (m *Manager) cycleLength(freqHz float64, sampleRate int) (int, error) {
	f := int(math.Round(math.Abs(freqHz)))
	n := sampleRate / gcd(f, sampleRate)
	if n < 1 {
		n = 1
	}
	if n > m.maxCycle {
		return 0, fmt.Errorf("%w: %.1f Hz at %d Hz needs %d samples (limit %d)",
			ErrTableTooLarge, freqHz, sampleRate, n, m.maxCycle)
	}
	return n, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
