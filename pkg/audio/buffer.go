package audio

import (
	"fmt"
	"time"
)

type SampleRate uint32

// Buffer is a mono sample payload together with its format.
type Buffer struct {
	Format     SampleFormat
	SampleRate SampleRate
	Data       []byte
}

func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("the buffer is nil")
	}
	if !b.Format.IsValid() {
		return fmt.Errorf("invalid sample format: %v", b.Format)
	}
	if b.SampleRate == 0 {
		return fmt.Errorf("sample rate is mandatory")
	}
	if len(b.Data)%int(b.Format.BytesPerSample()) != 0 {
		return fmt.Errorf("the size of the data is not a multiple of the sample size: %d %% %d != 0", len(b.Data), b.Format.BytesPerSample())
	}
	return nil
}

func (b *Buffer) NumSamples() int {
	return len(b.Data) / int(b.Format.BytesPerSample())
}

func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.NumSamples()) * time.Second / time.Duration(b.SampleRate)
}
