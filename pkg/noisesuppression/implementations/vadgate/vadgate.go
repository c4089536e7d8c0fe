// Package vadgate implements a noise gate driven by a voice activity
// detector: frames without voice are attenuated.
package vadgate

import (
	"context"
	"fmt"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/wavdenoise/pkg/audio"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
)

// Detector is a WebRTC-style voice activity detector.
type Detector interface {
	SetMode(mode int) error
	SetSampleRate(sampleRate int) error
	Process(frame []int16) (bool, error)
	Close() error
}

type Parameters struct {
	// Mode is the aggressiveness of the detector: 0 (least) .. 3 (most).
	Mode int `yaml:"mode"`

	// AttenuationDB is how much the frames without voice are attenuated.
	AttenuationDB float64 `yaml:"attenuation_db"`

	// HangoverFrames is the amount of frames kept open after the voice ends.
	HangoverFrames uint `yaml:"hangover_frames"`
}

func DefaultParameters() Parameters {
	return Parameters{
		Mode:           2,
		AttenuationDB:  30,
		HangoverFrames: 10,
	}
}

func (p Parameters) Validate() error {
	if p.Mode < 0 || p.Mode > 3 {
		return fmt.Errorf("mode must be within [0, 3]: %d", p.Mode)
	}
	if p.AttenuationDB < 0 {
		return fmt.Errorf("attenuation_db must not be negative: %v", p.AttenuationDB)
	}
	return nil
}

func (p Parameters) ClosedGain() float64 {
	return math.Pow(10, -p.AttenuationDB/20)
}

type VADGate struct {
	noisesuppression.SessionState
	Parameters  Parameters
	NewDetector func() (Detector, error)

	Detector      Detector
	Gain          float64
	HangoverLeft  uint
	detectorInput []int16
}

var _ noisesuppression.NoiseSuppression = (*VADGate)(nil)

func New() *VADGate {
	return &VADGate{
		Parameters:  DefaultParameters(),
		NewDetector: newFVAD,
		Gain:        1,
	}
}

// LoadModel reads the Parameters from a YAML file; an empty path keeps
// the defaults.
func (g *VADGate) LoadModel(ctx context.Context, path string) (_err error) {
	logger.Tracef(ctx, "LoadModel(%s)", path)
	defer func() { logger.Tracef(ctx, "/LoadModel(%s): %v", path, _err) }()

	if g.ModelLoaded {
		return g.ModelLoad(path)
	}

	params := DefaultParameters()
	if err := noisesuppression.LoadParameters(path, &params); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid parameters in '%s': %w", path, err)
	}

	detector, err := g.NewDetector()
	if err != nil {
		return fmt.Errorf("unable to initialize the voice activity detector: %w", err)
	}
	if err := detector.SetMode(params.Mode); err != nil {
		return closeOnFailure(detector, fmt.Errorf("unable to set the VAD mode to %d: %w", params.Mode, err))
	}
	if err := g.ModelLoad(path); err != nil {
		return closeOnFailure(detector, err)
	}
	g.Parameters = params
	g.Detector = detector
	logger.Debugf(ctx, "VAD gate parameters: %#+v", params)
	return nil
}

func closeOnFailure(detector Detector, err error) error {
	if closeErr := detector.Close(); closeErr != nil {
		return multierror.Append(err, fmt.Errorf("unable to close the voice activity detector: %w", closeErr))
	}
	return err
}

func (g *VADGate) SetSampleRate(ctx context.Context, sampleRate audio.SampleRate) error {
	if err := g.CheckSampleRateSettable(); err != nil {
		return err
	}
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return fmt.Errorf("%w: %d, expected one of 8000, 16000, 32000, 48000", noisesuppression.ErrUnsupportedSampleRate, sampleRate)
	}
	if err := g.Detector.SetSampleRate(int(sampleRate)); err != nil {
		return fmt.Errorf("unable to set the VAD sample rate to %d: %w", sampleRate, err)
	}
	return g.SampleRateSet(sampleRate)
}

func (g *VADGate) Close() error {
	var mErr *multierror.Error
	if err := g.SessionState.Close(); err != nil {
		mErr = multierror.Append(mErr, err)
	}
	if g.Detector != nil {
		if err := g.Detector.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the voice activity detector: %w", err))
		}
		g.Detector = nil
	}
	return mErr.ErrorOrNil()
}

func (g *VADGate) SuppressNoisePCM16(ctx context.Context, input []byte, outputVoice []byte) (float64, error) {
	return g.suppressNoise(ctx, audio.SampleFormatPCM16, input, outputVoice)
}

func (g *VADGate) SuppressNoiseFloat32(ctx context.Context, input []byte, outputVoice []byte) (float64, error) {
	return g.suppressNoise(ctx, audio.SampleFormatFloat32, input, outputVoice)
}

func (g *VADGate) suppressNoise(
	ctx context.Context,
	format audio.SampleFormat,
	input []byte,
	outputVoice []byte,
) (float64, error) {
	if err := g.CheckFrame(format, input, outputVoice); err != nil {
		return 0, fmt.Errorf("unable to process a %v frame: %w", format, err)
	}

	width := int(format.BytesPerSample())
	samples := len(input) / width
	if cap(g.detectorInput) < samples {
		g.detectorInput = make([]int16, samples)
	}
	g.detectorInput = g.detectorInput[:samples]
	for idx := range g.detectorInput {
		g.detectorInput[idx] = toInt16(format.Float64(input[idx*width:]))
	}

	isVoice, err := g.Detector.Process(g.detectorInput)
	if err != nil {
		return 0, fmt.Errorf("unable to detect voice: %w", err)
	}

	targetGain := g.Parameters.ClosedGain()
	switch {
	case isVoice:
		targetGain = 1
		g.HangoverLeft = g.Parameters.HangoverFrames
	case g.HangoverLeft > 0:
		targetGain = 1
		g.HangoverLeft--
	}

	startGain := g.Gain
	for idx := 0; idx < samples; idx++ {
		gain := startGain + (targetGain-startGain)*float64(idx+1)/float64(samples)
		p := input[idx*width:]
		format.PutFloat64(outputVoice[idx*width:], format.Float64(p)*gain)
	}
	g.Gain = targetGain

	if isVoice {
		return 1, nil
	}
	return 0, nil
}

func toInt16(v float64) int16 {
	v = math.Round(v * math.MaxInt16)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
