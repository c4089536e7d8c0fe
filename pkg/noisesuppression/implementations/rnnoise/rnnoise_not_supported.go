//go:build !rnnoise
// +build !rnnoise

package rnnoise

import (
	"fmt"

	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
)

type RNNoise = noisesuppression.Passthrough

func New() (*RNNoise, error) {
	return nil, fmt.Errorf("built without tag 'rnnoise'")
}
