package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/wavdenoise/pkg/audio"
	"github.com/xaionaro-go/wavdenoise/pkg/audio/frame"
	"github.com/xaionaro-go/wavdenoise/pkg/audio/wav"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
	"github.com/xaionaro-go/wavdenoise/pkg/voicestats"
)

// fakeSession negates every sample byte (or copies them if Copy is set),
// and records the calls.
type fakeSession struct {
	Calls      []string
	FrameSizes []int
	Frames     [][]byte
	Closed     int

	LoadModelErr     error
	SetSampleRateErr error
	FailAtFrame      int
	CloseErr         error
	Confidence       func(idx int) float64
	Copy             bool
}

var _ noisesuppression.NoiseSuppression = (*fakeSession)(nil)

func newFakeSession() *fakeSession {
	return &fakeSession{FailAtFrame: -1}
}

func (s *fakeSession) Close() error {
	s.Calls = append(s.Calls, "Close")
	s.Closed++
	return s.CloseErr
}

func (s *fakeSession) LoadModel(_ context.Context, path string) error {
	s.Calls = append(s.Calls, "LoadModel:"+path)
	return s.LoadModelErr
}

func (s *fakeSession) SetSampleRate(_ context.Context, sampleRate audio.SampleRate) error {
	s.Calls = append(s.Calls, fmt.Sprintf("SetSampleRate:%d", sampleRate))
	return s.SetSampleRateErr
}

func (s *fakeSession) SuppressNoisePCM16(_ context.Context, input []byte, outputVoice []byte) (float64, error) {
	return s.process("PCM16", input, outputVoice)
}

func (s *fakeSession) SuppressNoiseFloat32(_ context.Context, input []byte, outputVoice []byte) (float64, error) {
	return s.process("FLOAT32", input, outputVoice)
}

func (s *fakeSession) process(variant string, input []byte, outputVoice []byte) (float64, error) {
	idx := len(s.Frames)
	s.Calls = append(s.Calls, variant)
	s.FrameSizes = append(s.FrameSizes, len(input))
	s.Frames = append(s.Frames, append([]byte{}, input...))
	if idx == s.FailAtFrame {
		return 0, fmt.Errorf("frame is cursed")
	}
	for i := range input {
		if s.Copy {
			outputVoice[i] = input[i]
			continue
		}
		outputVoice[i] = ^input[i]
	}
	if s.Confidence != nil {
		return s.Confidence(idx), nil
	}
	return 1, nil
}

type fakeFactory struct {
	Sessions []*fakeSession
	Prepare  func(s *fakeSession)
}

func (f *fakeFactory) New(context.Context) (noisesuppression.NoiseSuppression, error) {
	s := newFakeSession()
	if f.Prepare != nil {
		f.Prepare(s)
	}
	f.Sessions = append(f.Sessions, s)
	return s, nil
}

func rawWAV(audioFormat, channels uint16, sampleRate uint32, bitsPerSample uint16, payload []byte) []byte {
	buf := new(bytes.Buffer)
	blockAlign := channels * bitsPerSample / 8
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(payload)))
	buf.WriteString("WAVEfmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, audioFormat)
	binary.Write(buf, binary.LittleEndian, channels)
	binary.Write(buf, binary.LittleEndian, sampleRate)
	binary.Write(buf, binary.LittleEndian, sampleRate*uint32(blockAlign))
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, bitsPerSample)
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

func payload(size int) []byte {
	b := make([]byte, size)
	for idx := range b {
		b[idx] = byte(idx*31 + idx/256)
	}
	return b
}

func negated(b []byte) []byte {
	result := make([]byte, len(b))
	for idx := range b {
		result[idx] = ^b[idx]
	}
	return result
}

func TestDenoisePCM16OneSecond(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	d := NewDriver(factory.New, DefaultConfig())

	input := payload(32000)
	output, result, err := d.Denoise(ctx, rawWAV(1, 1, 16000, 16, input), "model.kef")
	require.NoError(t, err)

	require.Len(t, factory.Sessions, 1)
	s := factory.Sessions[0]
	require.Len(t, s.Calls, 2+50+1)
	assert.Equal(t, "LoadModel:model.kef", s.Calls[0])
	assert.Equal(t, "SetSampleRate:16000", s.Calls[1])
	for idx := 0; idx < 50; idx++ {
		assert.Equal(t, "PCM16", s.Calls[2+idx])
		assert.Equal(t, 640, s.FrameSizes[idx])
		assert.Equal(t, input[idx*640:(idx+1)*640], s.Frames[idx], "frame %d", idx)
	}
	assert.Equal(t, "Close", s.Calls[52])
	assert.Equal(t, 1, s.Closed)

	assert.Equal(t, audio.SampleFormatPCM16, output.Format)
	assert.Equal(t, audio.SampleRate(16000), output.SampleRate)
	assert.Equal(t, negated(input), output.Data)

	assert.Equal(t, 50, result.Frames)
	assert.Equal(t, uint(320), result.FrameSamples)
	assert.Equal(t, uint(640), result.FrameBytes)
	assert.Zero(t, result.DroppedBytes)
	assert.Equal(t, 32000, result.OutputBytes)
	assert.Equal(t, 50, result.VoiceStats.VoiceFrames)

	assert.Equal(t, StateEncoded, d.State())
	assert.Equal(t, []State{StateIdle, StateDecoded, StateConfigured, StateStreaming, StateEncoded}, d.History())
}

func TestDenoiseFloat32Truncation(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	d := NewDriver(factory.New, DefaultConfig())

	input := payload(4000)
	output, result, err := d.Denoise(ctx, rawWAV(3, 1, 16000, 32, input), "")
	require.NoError(t, err)

	s := factory.Sessions[0]
	assert.Equal(t, []string{"LoadModel:", "SetSampleRate:16000", "FLOAT32", "FLOAT32", "FLOAT32", "Close"}, s.Calls)
	assert.Equal(t, []int{1280, 1280, 1280}, s.FrameSizes)

	assert.Equal(t, audio.SampleFormatFloat32, output.Format)
	require.Len(t, output.Data, 3840)
	assert.Equal(t, negated(input[:3840]), output.Data)
	assert.Equal(t, 3, result.Frames)
	assert.Equal(t, 160, result.DroppedBytes)
	assert.Zero(t, result.PaddedBytes)
}

func TestDenoisePad(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	cfg := DefaultConfig()
	cfg.TailPolicy = frame.TailPolicyPad
	d := NewDriver(factory.New, cfg)

	input := payload(4000)
	output, result, err := d.Denoise(ctx, rawWAV(3, 1, 16000, 32, input), "")
	require.NoError(t, err)

	s := factory.Sessions[0]
	require.Len(t, s.Frames, 4)
	assert.Equal(t, input[3840:], s.Frames[3][:160])
	assert.Equal(t, make([]byte, 1120), s.Frames[3][160:])

	assert.Equal(t, negated(input), output.Data)
	assert.Equal(t, 4, result.Frames)
	assert.Zero(t, result.DroppedBytes)
	assert.Equal(t, 1120, result.PaddedBytes)
	assert.Equal(t, 4000, result.OutputBytes)
}

func TestDenoiseShorterThanFrame(t *testing.T) {
	factory := &fakeFactory{}
	d := NewDriver(factory.New, DefaultConfig())

	output, result, err := d.Denoise(context.Background(), rawWAV(1, 1, 16000, 16, payload(100)), "")
	require.NoError(t, err)
	assert.Empty(t, output.Data)
	assert.Zero(t, result.Frames)
	assert.Equal(t, []string{"LoadModel:", "SetSampleRate:16000", "Close"}, factory.Sessions[0].Calls)
}

func TestDenoiseRejectsInput(t *testing.T) {
	for _, tc := range []struct {
		name     string
		wav      []byte
		expected error
	}{
		{"stereo", rawWAV(1, 2, 16000, 16, payload(640)), wav.ErrUnsupportedChannelLayout},
		{"PCM24", rawWAV(1, 1, 16000, 24, payload(960)), wav.ErrUnsupportedSampleFormat},
		{"garbage", []byte("definitely not a RIFF container"), wav.ErrMalformedContainer},
	} {
		t.Run(tc.name, func(t *testing.T) {
			factory := &fakeFactory{}
			d := NewDriver(factory.New, DefaultConfig())

			_, _, err := d.Denoise(context.Background(), tc.wav, "")
			require.ErrorIs(t, err, tc.expected)
			assert.Empty(t, factory.Sessions)
			assert.Equal(t, StateFailed, d.State())
			assert.Equal(t, []State{StateIdle, StateFailed}, d.History())
		})
	}
}

func TestDenoiseTooLowSampleRate(t *testing.T) {
	factory := &fakeFactory{}
	d := NewDriver(factory.New, DefaultConfig())

	_, _, err := d.Denoise(context.Background(), rawWAV(1, 1, 40, 16, payload(80)), "")
	require.ErrorIs(t, err, ErrSessionConfiguration)
	require.ErrorIs(t, err, frame.ErrZeroFrameSize)
	assert.Empty(t, factory.Sessions)
	assert.Equal(t, []State{StateIdle, StateDecoded, StateFailed}, d.History())
}

func TestDenoiseConfigurationFailure(t *testing.T) {
	t.Run("LoadModel", func(t *testing.T) {
		factory := &fakeFactory{Prepare: func(s *fakeSession) {
			s.LoadModelErr = fmt.Errorf("no such model")
		}}
		d := NewDriver(factory.New, DefaultConfig())

		_, _, err := d.Denoise(context.Background(), rawWAV(1, 1, 16000, 16, payload(6400)), "missing.kef")
		require.ErrorIs(t, err, ErrSessionConfiguration)
		assert.ErrorContains(t, err, "no such model")
		assert.Equal(t, []string{"LoadModel:missing.kef", "Close"}, factory.Sessions[0].Calls)
		assert.Equal(t, []State{StateIdle, StateDecoded, StateFailed}, d.History())
	})

	t.Run("SetSampleRate", func(t *testing.T) {
		factory := &fakeFactory{Prepare: func(s *fakeSession) {
			s.SetSampleRateErr = noisesuppression.ErrUnsupportedSampleRate
			s.CloseErr = fmt.Errorf("close failed too")
		}}
		d := NewDriver(factory.New, DefaultConfig())

		_, _, err := d.Denoise(context.Background(), rawWAV(1, 1, 16000, 16, payload(6400)), "m")
		require.ErrorIs(t, err, ErrSessionConfiguration)
		require.ErrorIs(t, err, noisesuppression.ErrUnsupportedSampleRate)
		assert.ErrorContains(t, err, "close failed too")
		assert.Equal(t, []string{"LoadModel:m", "SetSampleRate:16000", "Close"}, factory.Sessions[0].Calls)
		assert.Equal(t, StateFailed, d.State())
	})

	t.Run("factory", func(t *testing.T) {
		d := NewDriver(func(context.Context) (noisesuppression.NoiseSuppression, error) {
			return nil, fmt.Errorf("no engines")
		}, DefaultConfig())

		_, _, err := d.Denoise(context.Background(), rawWAV(1, 1, 16000, 16, payload(6400)), "m")
		require.ErrorIs(t, err, ErrSessionConfiguration)
		assert.Equal(t, StateFailed, d.State())
	})
}

func TestDenoiseProcessingFailure(t *testing.T) {
	factory := &fakeFactory{Prepare: func(s *fakeSession) {
		s.FailAtFrame = 2
	}}
	d := NewDriver(factory.New, DefaultConfig())

	_, _, err := d.Denoise(context.Background(), rawWAV(1, 1, 16000, 16, payload(6400)), "")
	require.ErrorIs(t, err, ErrSessionProcessing)
	assert.ErrorContains(t, err, "frame 2 of 10")
	assert.ErrorContains(t, err, "frame is cursed")

	s := factory.Sessions[0]
	assert.Equal(t, []string{"LoadModel:", "SetSampleRate:16000", "PCM16", "PCM16", "PCM16", "Close"}, s.Calls)
	assert.Equal(t, []State{StateIdle, StateDecoded, StateConfigured, StateStreaming, StateFailed}, d.History())
}

func TestDenoiseCloseFailure(t *testing.T) {
	factory := &fakeFactory{Prepare: func(s *fakeSession) {
		s.CloseErr = fmt.Errorf("leaked")
	}}
	d := NewDriver(factory.New, DefaultConfig())

	_, _, err := d.Denoise(context.Background(), rawWAV(1, 1, 16000, 16, payload(640)), "")
	require.ErrorIs(t, err, ErrSessionProcessing)
	assert.Equal(t, StateFailed, d.State())
}

func TestDenoiseVoiceStats(t *testing.T) {
	factory := &fakeFactory{Prepare: func(s *fakeSession) {
		s.Confidence = func(idx int) float64 {
			if idx >= 3 && idx < 7 {
				return 0.9
			}
			return 0.1
		}
	}}
	d := NewDriver(factory.New, DefaultConfig())

	_, result, err := d.Denoise(context.Background(), rawWAV(1, 1, 16000, 16, payload(6400)), "")
	require.NoError(t, err)
	assert.Equal(t, 10, result.VoiceStats.Frames)
	assert.Equal(t, 4, result.VoiceStats.VoiceFrames)
	assert.Equal(t, 3, result.VoiceStats.FirstVoice)
	assert.Equal(t, 0.9, result.VoiceStats.MaxConfidence)
	assert.Equal(t, 4*frame.Duration, result.VoiceStats.TalkTime())
}

func TestDenoiseNoiseStats(t *testing.T) {
	t.Run("everything removed", func(t *testing.T) {
		d := NewDriver((&fakeFactory{}).New, DefaultConfig())
		_, result, err := d.Denoise(context.Background(), rawWAV(1, 1, 16000, 16, payload(6400)), "")
		require.NoError(t, err)
		assert.Equal(t, 10*frame.Duration, result.VoiceStats.NoiseTime(voicestats.NoiseLevelHigh))
		assert.Zero(t, result.VoiceStats.NoiseTime(voicestats.NoiseLevelNone))
	})

	t.Run("nothing removed", func(t *testing.T) {
		factory := &fakeFactory{Prepare: func(s *fakeSession) { s.Copy = true }}
		d := NewDriver(factory.New, DefaultConfig())
		_, result, err := d.Denoise(context.Background(), rawWAV(1, 1, 8000, 16, payload(320*5)), "")
		require.NoError(t, err)
		assert.Equal(t, 5*frame.Duration, result.VoiceStats.NoiseTime(voicestats.NoiseLevelNone))
		assert.Zero(t, result.VoiceStats.NoiseTime(voicestats.NoiseLevelHigh))
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "in.wav")
	outputPath := filepath.Join(dir, "out.wav")

	input := payload(32000)
	require.NoError(t, os.WriteFile(inputPath, rawWAV(1, 1, 16000, 16, input), 0640))

	factory := &fakeFactory{}
	d := NewDriver(factory.New, DefaultConfig())
	result, err := d.Run(ctx, inputPath, outputPath, "model.kef")
	require.NoError(t, err)
	assert.Equal(t, StateDone, d.State())
	assert.Equal(t, []State{StateIdle, StateDecoded, StateConfigured, StateStreaming, StateEncoded, StateDone}, d.History())

	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(written)), result.WrittenBytes)

	decoded, err := wav.DecodeBytes(written)
	require.NoError(t, err)
	assert.Equal(t, audio.SampleFormatPCM16, decoded.Format)
	assert.Equal(t, audio.SampleRate(16000), decoded.SampleRate)
	assert.Equal(t, negated(input), decoded.Data)
}

func TestRunFileAccess(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	factory := &fakeFactory{}
	d := NewDriver(factory.New, DefaultConfig())

	_, err := d.Run(ctx, filepath.Join(dir, "missing.wav"), filepath.Join(dir, "out.wav"), "")
	require.ErrorIs(t, err, ErrFileAccess)
	assert.ErrorContains(t, err, "does not exist")
	assert.Equal(t, []State{StateIdle, StateFailed}, d.History())
	assert.Empty(t, factory.Sessions)

	_, err = d.Run(ctx, dir, filepath.Join(dir, "out.wav"), "")
	require.ErrorIs(t, err, ErrFileAccess)
	assert.ErrorContains(t, err, "error reading")
}

func TestRunWriteFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "in.wav")
	require.NoError(t, os.WriteFile(inputPath, rawWAV(1, 1, 16000, 16, payload(640)), 0640))

	factory := &fakeFactory{}
	d := NewDriver(factory.New, DefaultConfig())

	_, err := d.Run(ctx, inputPath, filepath.Join(dir, "no", "such", "dir", "out.wav"), "")
	require.ErrorIs(t, err, ErrWrite)
	assert.Equal(t, StateFailed, d.State())
	assert.Equal(t, StateEncoded, d.History()[len(d.History())-2])
}

func TestStateTransitions(t *testing.T) {
	d := NewDriver(nil, DefaultConfig())
	d.reset()
	ctx := context.Background()
	assert.Panics(t, func() { d.transition(ctx, StateStreaming) })

	d.reset()
	d.transition(ctx, StateFailed)
	assert.Panics(t, func() { d.transition(ctx, StateDecoded) })
	assert.Equal(t, "failed", d.State().String())
}
