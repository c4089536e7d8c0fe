package rnnoise

import (
	"context"

	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression/registry"
)

const (
	Name     = "rnnoise"
	Priority = 100

	// SampleRate is the only sample rate the RNNoise networks are trained for.
	SampleRate = 48_000
)

func init() {
	registry.Register(Name, Priority, Factory{})
}

type Factory struct{}

func (Factory) NewNoiseSuppression(context.Context) (noisesuppression.NoiseSuppression, error) {
	s, err := New()
	if err != nil {
		return nil, err
	}
	return s, nil
}
