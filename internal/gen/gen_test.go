package gen

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdrlabs/iqgen/internal/osc"
)

// quietConfig synthesizes with all noise off so byte values are exact.
func quietConfig() Config {
	return Config{
		SampleRate: 1_000_000,
		Gain:       1.0,
		BlockSize:  512,
		Seed:       1,
	}
}

func runGen(t *testing.T, cfg Config, symbol Symbol) []byte {
	t.Helper()
	var buf bytes.Buffer
	g := New(cfg, &buf)
	require.NoError(t, g.Run(context.Background(), symbol))
	return buf.Bytes()
}

// --- Noise classification ---

func TestLevelMinus24IsStillATone(t *testing.T) {
	// freq 0 keeps the oscillator at DC, so past the ramp the I channel
	// sits at the tone's level, clearly above the midpoint
	out := runGen(t, quietConfig(), Symbol{{DurationUS: 500, FrequencyHz: 0, LevelDB: -24}})
	require.Len(t, out, 1000)
	assert.Greater(t, out[2*200], byte(128), "sample past ramp-in must carry signal")
}

func TestLevelMinus25IsPureNoise(t *testing.T) {
	// noise floor 0: a noise tone emits exact midpoint bytes
	out := runGen(t, quietConfig(), Symbol{{DurationUS: 500, FrequencyHz: 0, LevelDB: -25}})
	require.Len(t, out, 1000)
	for i, b := range out {
		require.Equal(t, byte(128), b, "byte %d", i)
	}
}

func TestNoiseToneIgnoresFrequency(t *testing.T) {
	cfg := quietConfig()
	cfg.NoiseFloorPP = 0.2

	a := runGen(t, cfg, Symbol{{DurationUS: 500, FrequencyHz: 1000, LevelDB: -30}})
	b := runGen(t, cfg, Symbol{{DurationUS: 500, FrequencyHz: 433_000, LevelDB: -30}})
	assert.Equal(t, a, b, "noise output must not depend on the tone frequency")
}

// --- Envelope ramp ---

func TestRampShape(t *testing.T) {
	// 1000 samples of a DC tone at unity gain: the I channel traces the
	// raw envelope
	out := runGen(t, quietConfig(), Symbol{{DurationUS: 1000, FrequencyHz: 0, LevelDB: 0}})
	require.Len(t, out, 2000)

	iByte := func(n int) byte { return out[2*n] }

	assert.Equal(t, byte(128), iByte(0), "ramp starts at zero amplitude")
	assert.Equal(t, byte(191), iByte(50), "half way up the attack")
	assert.Equal(t, byte(255), iByte(100), "full amplitude at the end of the attack")
	assert.Equal(t, byte(255), iByte(500), "flat top")

	// release mirrors the attack sample for sample
	for u := 1; u < 100; u++ {
		assert.Equal(t, iByte(u), iByte(1000-u), "ramp asymmetric at offset %d", u)
	}

	// Q channel stays at the midpoint for a DC tone
	for _, n := range []int{0, 50, 500, 999} {
		assert.Equal(t, byte(128), out[2*n+1], "Q at sample %d", n)
	}
}

func TestShortToneOverlapsRamps(t *testing.T) {
	// 50 samples with a 100-sample ramp: both ramps apply at once and the
	// envelope never reaches full scale
	out := runGen(t, quietConfig(), Symbol{{DurationUS: 50, FrequencyHz: 0, LevelDB: 0}})
	require.Len(t, out, 100)
	for n := 0; n < 50; n++ {
		assert.Less(t, out[2*n], byte(255), "sample %d must stay below full scale", n)
	}
}

// --- Orchestration ---

func TestEmptySymbolProducesNothing(t *testing.T) {
	out := runGen(t, quietConfig(), nil)
	assert.Empty(t, out)
}

func TestSentinelStopsIteration(t *testing.T) {
	cfg := quietConfig()
	cfg.BlockSize = 4
	out := runGen(t, cfg, Symbol{
		{DurationUS: 2, FrequencyHz: 0, LevelDB: -100},
		{}, // sentinel
		{DurationUS: 5, FrequencyHz: 0, LevelDB: 0},
	})
	assert.Len(t, out, 4, "tones after the sentinel must not be synthesized")
}

func TestPartialFinalBlockIsFlushed(t *testing.T) {
	cfg := quietConfig()
	cfg.BlockSize = 4

	// 3 sample pairs: one full block plus a 2-byte remainder
	out := runGen(t, cfg, Symbol{{DurationUS: 3, FrequencyHz: 0, LevelDB: -100}})
	assert.Len(t, out, 6, "the pending partial block must reach the sink")
}

func TestTableLimitErrorAborts(t *testing.T) {
	cfg := quietConfig()
	cfg.MaxTableLen = 10

	var buf bytes.Buffer
	g := New(cfg, &buf)
	err := g.Run(context.Background(), Symbol{{DurationUS: 100, FrequencyHz: 433, LevelDB: 0}})
	require.ErrorIs(t, err, osc.ErrTableTooLarge)
	assert.Empty(t, buf.Bytes())
}

// --- Cancellation ---

// cancellingSink cancels the run context on its first write, then keeps
// accepting data.
type cancellingSink struct {
	cancel context.CancelFunc
	buf    bytes.Buffer
}

func (c *cancellingSink) Write(p []byte) (int, error) {
	c.cancel()
	return c.buf.Write(p)
}

func TestCancelledBeforeRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	g := New(quietConfig(), &buf)
	err := g.Run(ctx, Symbol{{DurationUS: 100, FrequencyHz: 0, LevelDB: 0}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.Bytes(), "no tone may start on a cancelled context")
}

func TestCancelledMidToneCompletesTone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &cancellingSink{cancel: cancel}

	cfg := quietConfig()
	cfg.BlockSize = 4
	g := New(cfg, sink)

	// cancellation fires while the first tone is being written; the tone
	// still completes, only the second is skipped
	err := g.Run(ctx, Symbol{
		{DurationUS: 10, FrequencyHz: 0, LevelDB: 0},
		{DurationUS: 10, FrequencyHz: 0, LevelDB: 0},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 20, sink.buf.Len(), "first tone completes, second never starts")
}

// --- End to end ---

func TestOneSecondToneScenario(t *testing.T) {
	out := runGen(t, quietConfig(), Symbol{
		{DurationUS: 1_000_000, FrequencyHz: 1000, LevelDB: 0},
		{}, // sentinel
	})
	require.Len(t, out, 2_000_000)

	// t=0: ramp-in holds both channels at the quantization midpoint
	assert.Equal(t, byte(128), out[0])
	assert.Equal(t, byte(128), out[1])

	// t=500000: phase is an exact multiple of 2pi, so (I, Q) = (+1, 0)
	assert.Equal(t, byte(255), out[2*500_000])
	assert.Equal(t, byte(128), out[2*500_000+1])
}

func TestDeterministicOutput(t *testing.T) {
	cfg := quietConfig()
	cfg.NoiseFloorPP = 0.2
	cfg.NoiseSignalPP = 0.1
	cfg.Seed = 42

	symbol := Symbol{
		{DurationUS: 300, FrequencyHz: 1000, LevelDB: 0},
		{DurationUS: 200, FrequencyHz: 0, LevelDB: -100},
		{DurationUS: 300, FrequencyHz: -1000, LevelDB: -6},
	}

	a := runGen(t, cfg, symbol)
	b := runGen(t, cfg, symbol)
	require.Equal(t, a, b, "same seed and config must be byte-identical")

	cfg.Seed = 43
	c := runGen(t, cfg, symbol)
	assert.NotEqual(t, a, c, "a different seed must change the noise")
}

func TestToneLengthDoesNotOverflow(t *testing.T) {
	g := New(quietConfig(), &bytes.Buffer{})

	// ordinary durations convert exactly
	assert.Equal(t, 1000, g.toneLength(Tone{DurationUS: 1000}))
	assert.Equal(t, 1_000_000, g.toneLength(Tone{DurationUS: 1_000_000}))

	// durations whose sample product exceeds uint64 must not wrap to a
	// small or negative count
	for _, us := range []uint64{math.MaxUint64, math.MaxUint64 / 2, 1 << 60} {
		n := g.toneLength(Tone{DurationUS: us})
		assert.Greater(t, n, 0, "duration %d", us)
	}
	assert.Equal(t, math.MaxInt, g.toneLength(Tone{DurationUS: math.MaxUint64}))
}

func TestSamplesCounter(t *testing.T) {
	var buf bytes.Buffer
	g := New(quietConfig(), &buf)
	require.NoError(t, g.Run(context.Background(), Symbol{
		{DurationUS: 250, FrequencyHz: 0, LevelDB: 0},
		{DurationUS: 250, FrequencyHz: 0, LevelDB: -100},
	}))
	assert.Equal(t, uint64(500), g.Samples())
	assert.Equal(t, 1, g.Tables(), "noise tones build no oscillator tables")
}
