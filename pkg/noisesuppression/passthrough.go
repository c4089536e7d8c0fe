package noisesuppression

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/wavdenoise/pkg/audio"
)

// Passthrough copies the input to the output and always reports voice.
// The model file is not read.
type Passthrough struct {
	SessionState
}

var _ NoiseSuppression = (*Passthrough)(nil)

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (s *Passthrough) LoadModel(ctx context.Context, path string) error {
	logger.Debugf(ctx, "the passthrough engine ignores the model '%s'", path)
	return s.ModelLoad(path)
}

func (s *Passthrough) SetSampleRate(ctx context.Context, sampleRate audio.SampleRate) error {
	return s.SampleRateSet(sampleRate)
}

func (s *Passthrough) SuppressNoisePCM16(ctx context.Context, input []byte, outputVoice []byte) (float64, error) {
	return s.suppressNoise(audio.SampleFormatPCM16, input, outputVoice)
}

func (s *Passthrough) SuppressNoiseFloat32(ctx context.Context, input []byte, outputVoice []byte) (float64, error) {
	return s.suppressNoise(audio.SampleFormatFloat32, input, outputVoice)
}

func (s *Passthrough) suppressNoise(format audio.SampleFormat, input []byte, outputVoice []byte) (float64, error) {
	if err := s.CheckFrame(format, input, outputVoice); err != nil {
		return 0, fmt.Errorf("unable to process a %v frame: %w", format, err)
	}
	copy(outputVoice, input)
	return 1, nil
}
