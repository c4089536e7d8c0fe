package voicestats

import (
	"fmt"
	"math"
)

// NoiseLevel is the bucket of the amount of noise removed from a frame.
type NoiseLevel int

const (
	NoiseLevelNone NoiseLevel = iota
	NoiseLevelLow
	NoiseLevelMedium
	NoiseLevelHigh
	endOfNoiseLevel
)

// Lower bounds (in dBFS of the removed signal) of the noise levels.
const (
	LowNoiseDBFS    = -60.0
	MediumNoiseDBFS = -45.0
	HighNoiseDBFS   = -30.0
)

func (l NoiseLevel) String() string {
	switch l {
	case NoiseLevelNone:
		return "none"
	case NoiseLevelLow:
		return "low"
	case NoiseLevelMedium:
		return "medium"
	case NoiseLevelHigh:
		return "high"
	default:
		return fmt.Sprintf("unknown_noise_level_%d", int(l))
	}
}

func NoiseLevels() []NoiseLevel {
	result := make([]NoiseLevel, 0, endOfNoiseLevel)
	for l := NoiseLevelNone; l < endOfNoiseLevel; l++ {
		result = append(result, l)
	}
	return result
}

func ClassifyNoise(dbfs float64) NoiseLevel {
	switch {
	case dbfs >= HighNoiseDBFS:
		return NoiseLevelHigh
	case dbfs >= MediumNoiseDBFS:
		return NoiseLevelMedium
	case dbfs >= LowNoiseDBFS:
		return NoiseLevelLow
	default:
		return NoiseLevelNone
	}
}

// RemovedDBFS returns the RMS level of input minus output in dBFS, or
// -Inf if nothing was removed. Both slices have the same length.
func RemovedDBFS(input, output []float64) float64 {
	if len(input) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for idx, v := range input {
		d := v - output[idx]
		sum += d * d
	}
	if sum == 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(sum/float64(len(input)))
}
