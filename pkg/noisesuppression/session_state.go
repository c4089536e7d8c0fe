package noisesuppression

import (
	"fmt"

	"github.com/xaionaro-go/wavdenoise/pkg/audio"
	"github.com/xaionaro-go/wavdenoise/pkg/audio/frame"
)

// SessionState tracks the configuration sequence every engine has to follow:
// LoadModel exactly once, then SetSampleRate exactly once, then frames.
type SessionState struct {
	ModelPath   string
	ModelLoaded bool
	SampleRate  audio.SampleRate
	Closed      bool
}

func (s *SessionState) ModelLoad(path string) error {
	if s.Closed {
		return ErrClosed
	}
	if s.ModelLoaded {
		return fmt.Errorf("%w: '%s'", ErrModelAlreadyLoaded, s.ModelPath)
	}
	s.ModelPath = path
	s.ModelLoaded = true
	return nil
}

// CheckSampleRateSettable returns an error if the session is not in the
// state where the sample rate may be set.
func (s *SessionState) CheckSampleRateSettable() error {
	if s.Closed {
		return ErrClosed
	}
	if !s.ModelLoaded {
		return ErrModelNotLoaded
	}
	if s.SampleRate != 0 {
		return fmt.Errorf("%w: %d", ErrSampleRateAlreadySet, s.SampleRate)
	}
	return nil
}

func (s *SessionState) SampleRateSet(sampleRate audio.SampleRate) error {
	if err := s.CheckSampleRateSettable(); err != nil {
		return err
	}
	if frame.SizeInSamples(sampleRate) == 0 {
		return fmt.Errorf("%w: %d", ErrUnsupportedSampleRate, sampleRate)
	}
	s.SampleRate = sampleRate
	return nil
}

// FrameSize returns the expected size of a frame in bytes.
func (s *SessionState) FrameSize(format audio.SampleFormat) uint {
	return frame.SizeInBytes(s.SampleRate, format)
}

func (s *SessionState) CheckFrame(format audio.SampleFormat, input, outputVoice []byte) error {
	if s.Closed {
		return ErrClosed
	}
	if !s.ModelLoaded {
		return ErrModelNotLoaded
	}
	if s.SampleRate == 0 {
		return ErrSampleRateNotSet
	}
	frameSize := s.FrameSize(format)
	if len(input) != int(frameSize) {
		return fmt.Errorf("%w: the input is %d bytes, expected %d", ErrFrameSizeMismatch, len(input), frameSize)
	}
	if len(outputVoice) != len(input) {
		return fmt.Errorf("%w: lengths of input and output slices are not equal: %d != %d", ErrFrameSizeMismatch, len(input), len(outputVoice))
	}
	return nil
}

func (s *SessionState) Close() error {
	if s.Closed {
		return fmt.Errorf("double-close attempt")
	}
	s.Closed = true
	return nil
}
