package spectral

import (
	"context"

	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression/registry"
)

const (
	Name     = "spectral"
	Priority = 50
)

func init() {
	registry.Register(Name, Priority, Factory{})
}

type Factory struct{}

func (Factory) NewNoiseSuppression(context.Context) (noisesuppression.NoiseSuppression, error) {
	return New(), nil
}
