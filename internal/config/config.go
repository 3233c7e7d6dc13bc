// Package config loads runtime configuration from environment variables.
// Command-line flags override these values in cmd/iqgen.
package config

import (
	"os"
	"strconv"
)

// Block size bounds. Out-of-range values silently fall back to the default;
// downstream tooling depends on the run proceeding rather than aborting over
// a tuning knob.
const (
	DefaultBlockSize = 256 * 1024
	MinBlockSize     = 512
	MaxBlockSize     = 4 * 1024 * 1024
)

// DefaultSampleRate matches the common 1 MS/s SDR capture rate.
const DefaultSampleRate = 1_000_000

// Config holds all runtime configuration for a generation run.
type Config struct {
	SampleRate int
	BlockSize  int // bytes per output block, [MinBlockSize, MaxBlockSize]

	Gain          float64 // linear global gain
	NoiseFloorPP  float64 // peak-to-peak noise floor
	NoiseSignalPP float64 // peak-to-peak noise on signal
	Seed          uint64  // RNG seed for reproducible runs

	ServeAddr string // beacon mode listen address, "" disables
}

// Load reads configuration from environment variables with the generator's
// defaults. The default noise levels match the original tool: a 0.2
// peak-to-peak floor and 0.1 peak-to-peak dither on signal.
func Load() Config {
	return Config{
		SampleRate:    envInt("IQGEN_SAMPLE_RATE", DefaultSampleRate),
		BlockSize:     envInt("IQGEN_BLOCK_SIZE", DefaultBlockSize),
		Gain:          envFloat("IQGEN_GAIN", 1.0),
		NoiseFloorPP:  envFloat("IQGEN_NOISE_FLOOR", 0.2),
		NoiseSignalPP: envFloat("IQGEN_NOISE_SIGNAL", 0.1),
		Seed:          uint64(envInt("IQGEN_SEED", 1)),
		ServeAddr:     envStr("IQGEN_SERVE_ADDR", ""),
	}
}

// ClampBlockSize replaces an out-of-range or odd block size with the
// default. Blocks hold whole I/Q byte pairs, so odd sizes are invalid too.
func ClampBlockSize(n int) int {
	if n < MinBlockSize || n > MaxBlockSize || n%2 != 0 {
		return DefaultBlockSize
	}
	return n
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
