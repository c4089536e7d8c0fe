package voicestats

import (
	"time"
)

// Accumulator collects the per-frame voice confidences and noise levels of
// a run.
type Accumulator struct {
	Threshold     float64
	FrameDuration time.Duration

	stats Stats
}

type Stats struct {
	Frames        int
	VoiceFrames   int
	MaxConfidence float64

	// FirstVoice is the index of the first frame with voice, or -1.
	FirstVoice    int
	FrameDuration time.Duration

	NoiseFrames [endOfNoiseLevel]int
}

func NewAccumulator(
	threshold float64,
	frameDuration time.Duration,
) *Accumulator {
	return &Accumulator{
		Threshold:     threshold,
		FrameDuration: frameDuration,
	}
}

func (a *Accumulator) Add(voiceConfidence float64) {
	pos := a.stats.Frames
	a.stats.Frames++

	if voiceConfidence > a.stats.MaxConfidence {
		a.stats.MaxConfidence = voiceConfidence
	}

	if voiceConfidence >= a.Threshold {
		a.stats.VoiceFrames++
		if a.stats.VoiceFrames == 1 {
			a.stats.FirstVoice = pos
		}
	}
}

// AddNoise accounts one frame with the given level of the removed signal
// (see RemovedDBFS).
func (a *Accumulator) AddNoise(removedDBFS float64) {
	a.stats.NoiseFrames[ClassifyNoise(removedDBFS)]++
}

func (a *Accumulator) Stats() Stats {
	s := a.stats
	s.FrameDuration = a.FrameDuration
	if s.VoiceFrames == 0 {
		s.FirstVoice = -1
	}
	return s
}

func (s Stats) TalkTime() time.Duration {
	return s.FrameDuration * time.Duration(s.VoiceFrames)
}

func (s Stats) TotalDuration() time.Duration {
	return s.FrameDuration * time.Duration(s.Frames)
}

// FirstVoiceAt returns the offset of the first frame with voice, or -1.
func (s Stats) FirstVoiceAt() time.Duration {
	if s.FirstVoice < 0 {
		return -1
	}
	return s.FrameDuration * time.Duration(s.FirstVoice)
}

// TalkRatio is the share of the frames that contain voice.
func (s Stats) TalkRatio() float64 {
	if s.Frames == 0 {
		return 0
	}
	return float64(s.VoiceFrames) / float64(s.Frames)
}

func (s Stats) NoiseTime(level NoiseLevel) time.Duration {
	if level < 0 || level >= endOfNoiseLevel {
		return 0
	}
	return s.FrameDuration * time.Duration(s.NoiseFrames[level])
}
