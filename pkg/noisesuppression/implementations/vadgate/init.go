package vadgate

import (
	"context"

	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression/registry"
)

const (
	Name     = "vadgate"
	Priority = 40
)

func init() {
	registry.Register(Name, Priority, Factory{})
}

type Factory struct{}

func (Factory) NewNoiseSuppression(context.Context) (noisesuppression.NoiseSuppression, error) {
	if err := Supported(); err != nil {
		return nil, err
	}
	return New(), nil
}
