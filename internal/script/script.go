// Package script parses the textual tone-script format into a symbol for
// the synthesis core.
//
// A script is a sequence of whitespace-separated tone triples:
//
//	duration frequency level
//
// one or more per line. Durations are microseconds unless suffixed with
// "us", "ms" or "s"; frequencies and rates accept k/M/G magnitude suffixes
// (e.g. "433.92M"). Levels follow the dual rule of the generator: dBFS when
// negative, linear multiplier otherwise. "#" starts a comment running to end
// of line; blank lines are ignored.
//
//	# 1 kHz beep, a pause of noise, then the mirror tone
//	500ms 1k 0
//	100ms 0 -100
//	500ms -1k 0
package script

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sdrlabs/iqgen/internal/gen"
)

// MaxTones bounds symbol growth so a malformed or hostile script reports a
// configuration error instead of allocating without limit.
const MaxTones = 1 << 16

// ErrTooManyTones reports a script exceeding MaxTones tones.
var ErrTooManyTones = errors.New("script: too many tones")

// Parse parses a tone script into a symbol. The returned symbol carries no
// explicit sentinel; the generator treats end of slice the same way.
func Parse(text string) (gen.Symbol, error) {
	var symbol gen.Symbol

	for ln, line := range strings.Split(text, "\n") {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields)%3 != 0 {
			return nil, fmt.Errorf("script: line %d: expected duration/frequency/level triples, got %d fields", ln+1, len(fields))
		}
		for i := 0; i < len(fields); i += 3 {
			tone, err := parseTone(fields[i], fields[i+1], fields[i+2])
			if err != nil {
				return nil, fmt.Errorf("script: line %d: %w", ln+1, err)
			}
			if len(symbol) >= MaxTones {
				return nil, fmt.Errorf("%w (limit %d)", ErrTooManyTones, MaxTones)
			}
			symbol = append(symbol, tone)
		}
	}
	return symbol, nil
}

// ParseFile reads and parses a tone script from path, or stdin for "-".
func ParseFile(path string) (gen.Symbol, error) {
	var (
		text []byte
		err  error
	)
	if path == "-" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("script: read %s: %w", path, err)
	}
	return Parse(string(text))
}

func parseTone(dur, freq, lvl string) (gen.Tone, error) {
	us, err := parseDuration(dur)
	if err != nil {
		return gen.Tone{}, err
	}
	hz, err := ParseNumber(freq)
	if err != nil {
		return gen.Tone{}, fmt.Errorf("frequency %q: %w", freq, err)
	}
	db, err := strconv.Atoi(lvl)
	if err != nil {
		return gen.Tone{}, fmt.Errorf("level %q: %w", lvl, err)
	}
	return gen.Tone{DurationUS: us, FrequencyHz: hz, LevelDB: db}, nil
}

// parseDuration parses a duration with an optional us/ms/s suffix into
// microseconds. Bare numbers are microseconds.
func parseDuration(s string) (uint64, error) {
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "us"):
		s = strings.TrimSuffix(s, "us")
	case strings.HasSuffix(s, "ms"):
		s, scale = strings.TrimSuffix(s, "ms"), 1e3
	case strings.HasSuffix(s, "s"):
		s, scale = strings.TrimSuffix(s, "s"), 1e6
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("duration %q: negative", s)
	}
	return uint64(v * scale), nil
}

// ParseNumber parses a float with an optional k/M/G magnitude suffix.
func ParseNumber(s string) (float64, error) {
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		s, scale = strings.TrimSuffix(s, "k"), 1e3
	case strings.HasSuffix(s, "M"):
		s, scale = strings.TrimSuffix(s, "M"), 1e6
	case strings.HasSuffix(s, "G"):
		s, scale = strings.TrimSuffix(s, "G"), 1e9
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v * scale, nil
}
