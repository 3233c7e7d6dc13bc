// Package gen is the synthesis core: it turns a symbolic tone sequence into
// a stream of interleaved unsigned 8-bit I/Q samples.
//
// Synthesis is single-threaded and synchronous. All run state lives in the
// Generator, configured once up front; cancellation is cooperative through
// the run context and is checked only between tones, so a tone already in
// progress always completes.
package gen

import (
	"context"
	"io"
	"math"
	"math/rand/v2"

	"github.com/sdrlabs/iqgen/internal/level"
	"github.com/sdrlabs/iqgen/internal/osc"
)

// NoiseThresholdDB is the classification boundary: tones below this level
// are synthesized as pure noise and their frequency is ignored.
const NoiseThresholdDB = -24

// rampSteps is the fixed attack/release length in samples. Tones shorter
// than twice this overlap their ramps, which lowers the effective peak;
// that is the intended envelope, not a case to correct.
const rampSteps = 100

// Config carries every knob the synthesis core reads. There is no ambient
// state; two generators with equal configs and seeds produce byte-identical
// output.
type Config struct {
	SampleRate    int     // samples per second, e.g. 1000000
	Gain          float64 // linear global gain applied to every sinusoid
	NoiseFloorPP  float64 // peak-to-peak amplitude of noise-only tones
	NoiseSignalPP float64 // peak-to-peak amplitude of noise added on tones
	BlockSize     int     // output block size in bytes
	Seed          uint64  // RNG seed for reproducible noise
	MaxTableLen   int     // oscillator table cap; 0 for the osc default
}

// Generator synthesizes symbols into an output sink.
type Generator struct {
	cfg Config
	rng *rand.Rand
	osc *osc.Manager
	out *BlockWriter

	samplesOut uint64
}

// New creates a generator writing to w. The writer receives whole blocks of
// Config.BlockSize bytes plus one final partial block on Flush.
func New(cfg Config, w io.Writer) *Generator {
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
		osc: osc.NewManager(cfg.MaxTableLen),
		out: NewBlockWriter(w, cfg.BlockSize),
	}
}

// Tables returns the number of oscillator tables built so far.
func (g *Generator) Tables() int { return g.osc.Count() }

// Samples returns the number of I/Q sample pairs emitted so far.
func (g *Generator) Samples() uint64 { return g.samplesOut }

// Run synthesizes one symbol in tone order and flushes the final partial
// block. It stops early, returning ctx.Err(), when the context is cancelled
// at a tone boundary; the tone being written when cancellation arrives is
// finished first. An empty symbol flushes nothing and returns nil.
func (g *Generator) Run(ctx context.Context, symbol Symbol) error {
	for _, tone := range symbol {
		if tone.IsSentinel() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		if tone.LevelDB < NoiseThresholdDB {
			err = g.addNoise(tone)
		} else {
			err = g.addTone(tone)
		}
		if err != nil {
			return err
		}
	}
	return g.out.Flush()
}

// toneLength converts a duration in microseconds to a sample count. The
// duration-times-rate product can exceed uint64 for absurdly long tones;
// those divide first (exact to the second) and saturate at MaxInt.
func (g *Generator) toneLength(tone Tone) int {
	rate := uint64(g.cfg.SampleRate)
	if rate == 0 {
		return 0
	}
	var n uint64
	if tone.DurationUS > math.MaxUint64/rate {
		sec := tone.DurationUS / 1_000_000
		if sec > math.MaxUint64/rate {
			return math.MaxInt
		}
		n = sec * rate
	} else {
		n = tone.DurationUS * rate / 1_000_000
	}
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

// randOff returns a sample of zero-mean uniform noise with unit peak-to-peak.
func (g *Generator) randOff() float64 {
	return g.rng.Float64() - 0.5
}

// addNoise emits pure noise at the configured floor level.
func (g *Generator) addNoise(tone Tone) error {
	end := g.toneLength(tone)
	for t := 0; t < end; t++ {
		i := g.randOff() * g.cfg.NoiseFloorPP
		q := g.randOff() * g.cfg.NoiseFloorPP
		if err := g.out.WriteSample(i, q); err != nil {
			return err
		}
		g.samplesOut++
	}
	return nil
}

// addTone emits a ramped, gain-scaled, noise-dithered complex sinusoid.
// The oscillator phase restarts at zero for every tone; no phase continuity
// is carried across tone boundaries.
func (g *Generator) addTone(tone Tone) error {
	lut, err := g.osc.Lookup(tone.FrequencyHz, g.cfg.SampleRate)
	if err != nil {
		return err
	}

	att := level.Gain(float64(tone.LevelDB)).Linear()
	end := g.toneLength(tone)

	for t := 0; t < end; t++ {
		attIn := 1.0
		if t < rampSteps {
			attIn = float64(t) / rampSteps
		}
		attOut := 1.0
		if t+rampSteps > end {
			attOut = float64(end-t) / rampSteps
		}

		c, s := lut.Sample(t)
		scale := g.cfg.Gain * att * attIn * attOut
		i := c*scale + g.randOff()*g.cfg.NoiseSignalPP
		q := s*scale + g.randOff()*g.cfg.NoiseSignalPP

		if err := g.out.WriteSample(i, q); err != nil {
			return err
		}
		g.samplesOut++
	}
	return nil
}
