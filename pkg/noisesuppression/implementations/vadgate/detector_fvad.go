//go:build fvad
// +build fvad

package vadgate

import (
	"github.com/josharian/fvad"
)

type fvadDetector struct {
	*fvad.Detector
}

func (d fvadDetector) Close() error {
	d.Detector.Close()
	return nil
}

func newFVAD() (Detector, error) {
	return fvadDetector{Detector: fvad.NewDetector()}, nil
}

// Supported returns nil if the package was built with libfvad.
func Supported() error {
	return nil
}
