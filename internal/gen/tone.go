package gen

// Tone is one interval of the symbolic waveform description: hold the given
// frequency at the given level for the given duration. A negative frequency
// selects clockwise rotation of the complex oscillator, not just a
// magnitude. Levels below the noise threshold synthesize pure noise and the
// frequency is ignored.
type Tone struct {
	DurationUS  uint64  // microseconds; 0 is the end-of-symbol sentinel
	FrequencyHz float64 // signed; sign is rotation direction
	LevelDB     int     // dBFS when <= 0, linear multiplier when positive
}

// IsSentinel reports whether the tone terminates a symbol.
func (t Tone) IsSentinel() bool { return t.DurationUS == 0 }

// Symbol is an ordered sequence of tones describing a complete waveform.
// It is owned by the caller and read-only to the generator; iteration stops
// at the first sentinel tone or the end of the slice, whichever comes first.
type Symbol []Tone
