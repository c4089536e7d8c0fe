package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/xaionaro-go/wavdenoise/pkg/audio"
)

// Encode writes buf as a canonical mono WAV file. The container is built from
// scratch; the sample payload is written bit-exact.
func Encode(w io.WriteSeeker, buf *audio.Buffer) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	enc := gowav.NewEncoder(
		w,
		int(buf.SampleRate),
		int(buf.Format.BitsPerSample()),
		1,
		int(buf.Format.WAVAudioFormat()),
	)

	intBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(buf.SampleRate),
		},
		Data:           toInts(buf.Format, buf.Data),
		SourceBitDepth: int(buf.Format.BitsPerSample()),
	}
	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("%w: unable to write %d samples: %w", ErrEncode, len(intBuf.Data), err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: unable to finalize the container: %w", ErrEncode, err)
	}
	return nil
}

func EncodeBytes(buf *audio.Buffer) ([]byte, error) {
	ws := &writeSeeker{}
	if err := Encode(ws, buf); err != nil {
		return nil, err
	}
	return ws.Bytes(), nil
}

// toInts re-packs the payload into the integer representation go-audio writes
// back out: int16 for PCM16 and the raw IEEE-754 bits (as int32) for FLOAT32.
func toInts(format audio.SampleFormat, data []byte) []int {
	width := int(format.BytesPerSample())
	result := make([]int, len(data)/width)
	for idx := range result {
		p := data[idx*width:]
		switch format {
		case audio.SampleFormatPCM16:
			result[idx] = int(int16(binary.LittleEndian.Uint16(p)))
		case audio.SampleFormatFloat32:
			result[idx] = int(int32(binary.LittleEndian.Uint32(p)))
		}
	}
	return result
}
