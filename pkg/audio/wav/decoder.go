package wav

import (
	"bytes"
	"fmt"
	"io"

	gowav "github.com/go-audio/wav"
	"github.com/xaionaro-go/wavdenoise/pkg/audio"
)

// Descriptor is the part of the "fmt " chunk that decides whether a file
// could be processed at all.
type Descriptor struct {
	NumChannels   uint16
	SampleRate    uint32
	AudioFormat   uint16
	BitsPerSample uint16
}

func (d Descriptor) SampleFormat() (audio.SampleFormat, error) {
	format, ok := audio.SampleFormatFromWAV(d.AudioFormat, d.BitsPerSample)
	if !ok {
		return audio.SampleFormatUndefined, fmt.Errorf(
			"%w: format %d and depth %d, only PCM16 and FLOAT32 are supported",
			ErrUnsupportedSampleFormat, d.AudioFormat, d.BitsPerSample,
		)
	}
	return format, nil
}

func (d Descriptor) Validate() error {
	if d.NumChannels == 0 || d.SampleRate == 0 || d.BitsPerSample == 0 {
		return fmt.Errorf("%w: missing or empty fmt chunk: %#+v", ErrMalformedContainer, d)
	}
	if d.NumChannels != 1 {
		return fmt.Errorf("%w: %d channels, only mono is supported", ErrUnsupportedChannelLayout, d.NumChannels)
	}
	if _, err := d.SampleFormat(); err != nil {
		return err
	}
	return nil
}

func DecodeBytes(b []byte) (*audio.Buffer, error) {
	return Decode(bytes.NewReader(b))
}

// Decode reads a mono PCM16 or FLOAT32 WAV container and returns its sample
// payload untouched.
func Decode(r io.ReadSeeker) (*audio.Buffer, error) {
	dec := gowav.NewDecoder(r)
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedContainer, err)
	}
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedContainer, err)
	}
	if dec.PCMChunk == nil {
		return nil, fmt.Errorf("%w: data chunk not found", ErrMalformedContainer)
	}

	desc := Descriptor{
		NumChannels:   dec.NumChans,
		SampleRate:    dec.SampleRate,
		AudioFormat:   dec.WavAudioFormat,
		BitsPerSample: dec.BitDepth,
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	format, err := desc.SampleFormat()
	if err != nil {
		return nil, err
	}

	size := dec.PCMLen()
	if size < 0 || size%int64(format.BytesPerSample()) != 0 {
		return nil, fmt.Errorf("%w: the data chunk size %d is not a multiple of %d", ErrMalformedContainer, size, format.BytesPerSample())
	}
	// size is taken from the header and may exceed the actual payload
	data, err := io.ReadAll(io.LimitReader(dec.PCMChunk, size))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read %d bytes of samples: %w", ErrMalformedContainer, size, err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("%w: the data chunk declares %d bytes, but only %d are present", ErrMalformedContainer, size, len(data))
	}

	return &audio.Buffer{
		Format:     format,
		SampleRate: audio.SampleRate(desc.SampleRate),
		Data:       data,
	}, nil
}
