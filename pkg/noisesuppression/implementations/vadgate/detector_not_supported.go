//go:build !fvad
// +build !fvad

package vadgate

import (
	"fmt"
)

func newFVAD() (Detector, error) {
	return nil, Supported()
}

func Supported() error {
	return fmt.Errorf("built without tag 'fvad'")
}
