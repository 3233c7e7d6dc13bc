// Package level converts signal levels between dBFS and linear amplitude.
//
// Command-line and per-tone levels are raw numbers with a dual meaning:
// negative values are attenuations in dBFS, non-negative values are direct
// linear multipliers (with 0 meaning "off" for noise but "0 dBFS" for gain).
// The ambiguity is resolved once, at configuration time, into a tagged Level.
package level

import "math"

// rmsCorrection converts an RMS-equivalent target into the peak-to-peak
// amplitude of uniform noise that matches a sine of the same level.
var rmsCorrection = 2 * math.Sqrt(0.75)

// Level is a signal level tagged with its unit of origin.
type Level struct {
	value float64
	inDB  bool
}

// Decibels returns a Level expressed in dBFS.
func Decibels(v float64) Level { return Level{value: v, inDB: true} }

// Multiplier returns a Level expressed as a direct linear multiplier.
func Multiplier(v float64) Level { return Level{value: v} }

// Gain interprets a raw value as a signal gain: zero and below is dBFS,
// positive is a multiplier. 0 therefore means 0 dBFS, i.e. unity.
func Gain(raw float64) Level {
	if raw <= 0 {
		return Decibels(raw)
	}
	return Multiplier(raw)
}

// Noise interprets a raw value as a noise level: negative is dBFS, zero and
// above is a multiplier. 0 therefore means off.
func Noise(raw float64) Level {
	if raw < 0 {
		return Decibels(raw)
	}
	return Multiplier(raw)
}

// Linear returns the level as a linear amplitude. Non-finite values
// propagate unchanged; validation is the caller's concern.
func (l Level) Linear() float64 {
	if l.inDB {
		return math.Pow(10, l.value/20)
	}
	return l.value
}

// PeakToPeak returns the peak-to-peak amplitude of uniform noise whose RMS
// matches a sine at this level. Only noise levels get this correction.
func (l Level) PeakToPeak() float64 {
	return l.Linear() * rmsCorrection
}
