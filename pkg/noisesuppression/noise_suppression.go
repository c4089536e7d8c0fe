package noisesuppression

import (
	"context"
	"fmt"
	"io"

	"github.com/xaionaro-go/wavdenoise/pkg/audio"
)

// NoiseSuppression is a stateful noise suppression session. It is configured
// once (LoadModel, then SetSampleRate) and then fed with consecutive frames
// of frame.Duration each.
//
// The returned float64 is the confidence [0..1] that the frame contains voice.
type NoiseSuppression interface {
	io.Closer

	LoadModel(ctx context.Context, path string) error
	SetSampleRate(ctx context.Context, sampleRate audio.SampleRate) error

	SuppressNoisePCM16(ctx context.Context, input []byte, outputVoice []byte) (float64, error)
	SuppressNoiseFloat32(ctx context.Context, input []byte, outputVoice []byte) (float64, error)
}

type FrameProcessor func(ctx context.Context, input []byte, outputVoice []byte) (float64, error)

// FrameFunc returns the variant of the session that handles the given format.
func FrameFunc(
	ns NoiseSuppression,
	format audio.SampleFormat,
) (FrameProcessor, error) {
	switch format {
	case audio.SampleFormatPCM16:
		return ns.SuppressNoisePCM16, nil
	case audio.SampleFormatFloat32:
		return ns.SuppressNoiseFloat32, nil
	default:
		return nil, fmt.Errorf("no processing variant for sample format %v", format)
	}
}
