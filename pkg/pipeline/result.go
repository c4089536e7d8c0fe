package pipeline

import (
	"github.com/xaionaro-go/wavdenoise/pkg/audio"
	"github.com/xaionaro-go/wavdenoise/pkg/voicestats"
)

type Result struct {
	Format       audio.SampleFormat
	SampleRate   audio.SampleRate
	FrameSamples uint
	FrameBytes   uint
	Frames       int
	DroppedBytes int
	PaddedBytes  int

	// OutputBytes is the length of the output sample payload.
	OutputBytes int

	// WrittenBytes is the size of the written WAV file.
	WrittenBytes uint64

	VoiceStats voicestats.Stats
}
