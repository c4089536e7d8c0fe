package pipeline

import "errors"

var (
	ErrFileAccess           = errors.New("file access error")
	ErrSessionConfiguration = errors.New("unable to configure the noise suppression session")
	ErrSessionProcessing    = errors.New("noise suppression session failed")
	ErrEncode               = errors.New("unable to encode the output")
	ErrWrite                = errors.New("unable to write the output")
)
