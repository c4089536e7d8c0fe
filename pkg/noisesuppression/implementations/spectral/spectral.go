// Package spectral implements noise suppression by magnitude spectral
// subtraction.
//
// The first frames of the recording are assumed to contain only noise: their
// average magnitude spectrum becomes the noise estimate. Every further frame
// gets the (over-subtracted) noise magnitude removed from each frequency bin,
// never going below a fraction of the original magnitude (the spectral floor),
// while the phase is kept intact. Frames that turn out to be mostly noise keep
// refining the noise estimate.
package spectral

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/mjibson/go-dsp/fft"
	"github.com/xaionaro-go/wavdenoise/pkg/audio"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
)

type Parameters struct {
	// NoiseFrames is the amount of leading frames used to learn the noise.
	NoiseFrames uint `yaml:"noise_frames"`

	// OverSubtraction is the multiplier of the noise estimate to subtract.
	OverSubtraction float64 `yaml:"over_subtraction"`

	// SpectralFloor is the minimal fraction of the original magnitude to keep.
	SpectralFloor float64 `yaml:"spectral_floor"`

	NoiseUpdateRate      float64 `yaml:"noise_update_rate"`
	NoiseUpdateThreshold float64 `yaml:"noise_update_threshold"`
}

func DefaultParameters() Parameters {
	return Parameters{
		NoiseFrames:          10,
		OverSubtraction:      2.0,
		SpectralFloor:        0.02,
		NoiseUpdateRate:      0.05,
		NoiseUpdateThreshold: 0.5,
	}
}

func (p Parameters) Validate() error {
	if p.NoiseFrames == 0 {
		return fmt.Errorf("noise_frames must be positive")
	}
	if p.OverSubtraction < 0 {
		return fmt.Errorf("over_subtraction must not be negative: %v", p.OverSubtraction)
	}
	if p.SpectralFloor < 0 || p.SpectralFloor > 1 {
		return fmt.Errorf("spectral_floor must be within [0, 1]: %v", p.SpectralFloor)
	}
	if p.NoiseUpdateRate < 0 || p.NoiseUpdateRate > 1 {
		return fmt.Errorf("noise_update_rate must be within [0, 1]: %v", p.NoiseUpdateRate)
	}
	if p.NoiseUpdateThreshold < 0 || p.NoiseUpdateThreshold > 1 {
		return fmt.Errorf("noise_update_threshold must be within [0, 1]: %v", p.NoiseUpdateThreshold)
	}
	return nil
}

type Spectral struct {
	noisesuppression.SessionState
	Parameters Parameters

	NoiseMagnitude []float64
	LearnedFrames  uint

	samples []float64
	cleaned []complex128
	output  []float64
}

var _ noisesuppression.NoiseSuppression = (*Spectral)(nil)

func New() *Spectral {
	return &Spectral{
		Parameters: DefaultParameters(),
	}
}

// LoadModel reads the Parameters from a YAML file; an empty path keeps
// the defaults.
func (s *Spectral) LoadModel(ctx context.Context, path string) (_err error) {
	logger.Tracef(ctx, "LoadModel(%s)", path)
	defer func() { logger.Tracef(ctx, "/LoadModel(%s): %v", path, _err) }()

	if s.ModelLoaded {
		return s.ModelLoad(path)
	}

	params := DefaultParameters()
	if err := noisesuppression.LoadParameters(path, &params); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid parameters in '%s': %w", path, err)
	}
	if err := s.ModelLoad(path); err != nil {
		return err
	}
	s.Parameters = params
	logger.Debugf(ctx, "spectral subtraction parameters: %#+v", params)
	return nil
}

func (s *Spectral) SetSampleRate(ctx context.Context, sampleRate audio.SampleRate) error {
	return s.SampleRateSet(sampleRate)
}

func (s *Spectral) SuppressNoisePCM16(ctx context.Context, input []byte, outputVoice []byte) (float64, error) {
	return s.suppressNoise(ctx, audio.SampleFormatPCM16, input, outputVoice)
}

func (s *Spectral) SuppressNoiseFloat32(ctx context.Context, input []byte, outputVoice []byte) (float64, error) {
	return s.suppressNoise(ctx, audio.SampleFormatFloat32, input, outputVoice)
}

func (s *Spectral) suppressNoise(
	ctx context.Context,
	format audio.SampleFormat,
	input []byte,
	outputVoice []byte,
) (float64, error) {
	if err := s.CheckFrame(format, input, outputVoice); err != nil {
		return 0, fmt.Errorf("unable to process a %v frame: %w", format, err)
	}

	s.samples = audio.ToFloat64s(format, s.samples, input)
	spectrum := fft.FFTReal(s.samples)
	if s.NoiseMagnitude == nil {
		s.NoiseMagnitude = make([]float64, len(spectrum))
	}

	if s.LearnedFrames < s.Parameters.NoiseFrames {
		s.learn(spectrum)
		copy(outputVoice, input)
		return 0, nil
	}

	confidence := s.subtract(spectrum)
	if confidence < s.Parameters.NoiseUpdateThreshold {
		s.updateNoise(spectrum)
	}

	timeDomain := fft.IFFT(s.cleaned)
	if cap(s.output) < len(timeDomain) {
		s.output = make([]float64, len(timeDomain))
	}
	s.output = s.output[:len(timeDomain)]
	for idx, v := range timeDomain {
		s.output[idx] = real(v)
	}
	audio.FromFloat64s(format, outputVoice, s.output)
	return confidence, nil
}

// learn folds the frame into the running average of the noise magnitude.
func (s *Spectral) learn(spectrum []complex128) {
	s.LearnedFrames++
	weight := 1 / float64(s.LearnedFrames)
	for idx, v := range spectrum {
		s.NoiseMagnitude[idx] += (cmplx.Abs(v) - s.NoiseMagnitude[idx]) * weight
	}
}

func (s *Spectral) updateNoise(spectrum []complex128) {
	rate := s.Parameters.NoiseUpdateRate
	for idx, v := range spectrum {
		s.NoiseMagnitude[idx] = (1-rate)*s.NoiseMagnitude[idx] + rate*cmplx.Abs(v)
	}
}

// subtract fills s.cleaned and returns the share of the energy that was kept.
func (s *Spectral) subtract(spectrum []complex128) float64 {
	if cap(s.cleaned) < len(spectrum) {
		s.cleaned = make([]complex128, len(spectrum))
	}
	s.cleaned = s.cleaned[:len(spectrum)]

	var energyIn, energyOut float64
	for idx, v := range spectrum {
		magnitude := cmplx.Abs(v)
		if magnitude == 0 {
			s.cleaned[idx] = 0
			continue
		}
		cleanedMagnitude := math.Max(
			magnitude-s.Parameters.OverSubtraction*s.NoiseMagnitude[idx],
			s.Parameters.SpectralFloor*magnitude,
		)
		s.cleaned[idx] = v * complex(cleanedMagnitude/magnitude, 0)
		energyIn += magnitude * magnitude
		energyOut += cleanedMagnitude * cleanedMagnitude
	}

	if energyIn == 0 {
		return 0
	}
	return energyOut / energyIn
}
