package wav

import "errors"

var (
	ErrMalformedContainer       = errors.New("malformed WAV container")
	ErrUnsupportedChannelLayout = errors.New("unsupported channel layout")
	ErrUnsupportedSampleFormat  = errors.New("unsupported sample format")
	ErrEncode                   = errors.New("unable to encode WAV")
)
