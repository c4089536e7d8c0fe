package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/xaionaro-go/wavdenoise/pkg/audio"
)

const Duration = 20 * time.Millisecond

var ErrZeroFrameSize = errors.New("the frame size is zero")

// SizeInSamples returns floor(Duration * sampleRate).
func SizeInSamples(sampleRate audio.SampleRate) uint {
	return uint(uint64(sampleRate) * uint64(Duration/time.Millisecond) / 1000)
}

func SizeInBytes(sampleRate audio.SampleRate, format audio.SampleFormat) uint {
	return SizeInSamples(sampleRate) * format.BytesPerSample()
}

// Segmentation is the plan of how a payload of InputLength bytes is sliced
// into frames of FrameSize bytes.
type Segmentation struct {
	Policy      TailPolicy
	FrameSize   uint
	InputLength int
	Count       int

	// TailLength is the length of the trailing incomplete frame: dropped
	// with TailPolicyDrop, zero-padded with TailPolicyPad.
	TailLength int

	// OutputLength is the length of the payload to be written out.
	OutputLength int
}

func Segment(length int, frameSize uint, policy TailPolicy) (Segmentation, error) {
	if frameSize == 0 {
		return Segmentation{}, ErrZeroFrameSize
	}
	if length < 0 {
		return Segmentation{}, fmt.Errorf("negative length: %d", length)
	}

	s := Segmentation{
		Policy:      policy,
		FrameSize:   frameSize,
		InputLength: length,
		Count:       length / int(frameSize),
		TailLength:  length % int(frameSize),
	}
	switch policy {
	case TailPolicyDrop:
		s.OutputLength = s.Count * int(frameSize)
	case TailPolicyPad:
		if s.TailLength != 0 {
			s.Count++
		}
		s.OutputLength = length
	default:
		return Segmentation{}, fmt.Errorf("unknown tail policy: %v", policy)
	}
	return s, nil
}

// ProcessingLength is the length of the payload that is fed to the frames.
func (s Segmentation) ProcessingLength() int {
	return s.Count * int(s.FrameSize)
}

func (s Segmentation) DroppedBytes() int {
	if s.Policy != TailPolicyDrop {
		return 0
	}
	return s.TailLength
}

func (s Segmentation) PaddedBytes() int {
	if s.Policy != TailPolicyPad || s.TailLength == 0 {
		return 0
	}
	return int(s.FrameSize) - s.TailLength
}

// Range returns the byte range [begin, end) of the frame number idx.
func (s Segmentation) Range(idx int) (int, int) {
	begin := idx * int(s.FrameSize)
	return begin, begin + int(s.FrameSize)
}

// Prepare returns a payload of ProcessingLength bytes to be sliced with Range.
// The original data is returned as is unless it needs padding.
func (s Segmentation) Prepare(data []byte) []byte {
	processingLength := s.ProcessingLength()
	if len(data) >= processingLength {
		return data[:processingLength]
	}
	padded := make([]byte, processingLength)
	copy(padded, data)
	return padded
}
