package noisesuppression

import "errors"

var (
	ErrModelNotLoaded        = errors.New("the model is not loaded")
	ErrModelAlreadyLoaded    = errors.New("the model is already loaded")
	ErrSampleRateNotSet      = errors.New("the sample rate is not set")
	ErrSampleRateAlreadySet  = errors.New("the sample rate is already set")
	ErrUnsupportedSampleRate = errors.New("unsupported sample rate")
	ErrFrameSizeMismatch     = errors.New("unexpected frame size")
	ErrClosed                = errors.New("the session is closed")
)
