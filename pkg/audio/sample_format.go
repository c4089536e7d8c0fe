package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// SampleFormat is the encoding of a single mono sample. All the supported
// formats are little-endian, as stored in a WAV container.
type SampleFormat int

const (
	SampleFormatUndefined = SampleFormat(iota)
	SampleFormatPCM16
	SampleFormatFloat32
	endOfSampleFormat
)

const (
	WAVAudioFormatPCM       = 1
	WAVAudioFormatIEEEFloat = 3
)

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatUndefined:
		return "<undefined>"
	case SampleFormatPCM16:
		return "PCM16"
	case SampleFormatFloat32:
		return "FLOAT32"
	default:
		return fmt.Sprintf("<unexpected_format_%d>", int(f))
	}
}

func (f SampleFormat) IsValid() bool {
	return f > SampleFormatUndefined && f < endOfSampleFormat
}

func (f SampleFormat) BytesPerSample() uint {
	switch f {
	case SampleFormatPCM16:
		return 2
	case SampleFormatFloat32:
		return 4
	default:
		return 0
	}
}

func (f SampleFormat) BitsPerSample() uint {
	return f.BytesPerSample() * 8
}

// WAVAudioFormat returns the format tag used in the "fmt " chunk of a WAV file.
func (f SampleFormat) WAVAudioFormat() uint16 {
	switch f {
	case SampleFormatPCM16:
		return WAVAudioFormatPCM
	case SampleFormatFloat32:
		return WAVAudioFormatIEEEFloat
	default:
		return 0
	}
}

func (f SampleFormat) BytesForDuration(sampleRate SampleRate, duration time.Duration) uint64 {
	samples := uint64(sampleRate) * uint64(duration) / uint64(time.Second)
	return samples * uint64(f.BytesPerSample())
}

// Float64 decodes the first sample of p into the range [-1, 1] (float samples
// are returned as is, even if they are out of range).
func (f SampleFormat) Float64(p []byte) float64 {
	switch f {
	case SampleFormatPCM16:
		return float64(int16(binary.LittleEndian.Uint16(p))) / 32768
	case SampleFormatFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

// PutFloat64 encodes v into the first sample of p. PCM16 values are clamped.
func (f SampleFormat) PutFloat64(p []byte, v float64) {
	switch f {
	case SampleFormatPCM16:
		val := math.Round(v * 32768)
		if val > math.MaxInt16 {
			val = math.MaxInt16
		}
		if val < math.MinInt16 {
			val = math.MinInt16
		}
		binary.LittleEndian.PutUint16(p, uint16(int16(val)))
	case SampleFormatFloat32:
		binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

// SampleFormatFromWAV resolves a WAV format tag and bit depth into one of the
// supported sample formats.
func SampleFormatFromWAV(audioFormat uint16, bitsPerSample uint16) (SampleFormat, bool) {
	switch {
	case audioFormat == WAVAudioFormatIEEEFloat && bitsPerSample == 32:
		return SampleFormatFloat32, true
	case audioFormat == WAVAudioFormatPCM && bitsPerSample == 16:
		return SampleFormatPCM16, true
	default:
		return SampleFormatUndefined, false
	}
}
