package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/wavdenoise/pkg/noisesuppression"
)

const (
	EngineAuto        = "auto"
	EnginePassthrough = "passthrough"
)

var ErrUnknownEngine = errors.New("unknown noise suppression engine")

type Factory interface {
	NewNoiseSuppression(ctx context.Context) (noisesuppression.NoiseSuppression, error)
}

type FactoryFunc func(ctx context.Context) (noisesuppression.NoiseSuppression, error)

func (fn FactoryFunc) NewNoiseSuppression(ctx context.Context) (noisesuppression.NoiseSuppression, error) {
	return fn(ctx)
}

type factoryWithPriority struct {
	Name     string
	Priority int
	Factory
}

var (
	factoryRegistryLocker sync.Mutex
	factoryRegistry       = map[string]factoryWithPriority{}
)

func init() {
	Register(EnginePassthrough, 0, FactoryFunc(func(context.Context) (noisesuppression.NoiseSuppression, error) {
		return noisesuppression.NewPassthrough(), nil
	}))
}

func Register(
	name string,
	priority int,
	factory Factory,
) {
	factoryRegistryLocker.Lock()
	defer factoryRegistryLocker.Unlock()
	if name == "" || name == EngineAuto {
		panic(fmt.Errorf("invalid engine name '%s'", name))
	}
	if _, ok := factoryRegistry[name]; ok {
		panic(fmt.Errorf("there is already registered a noise suppression factory with name '%s'", name))
	}
	factoryRegistry[name] = factoryWithPriority{
		Name:     name,
		Priority: priority,
		Factory:  factory,
	}
}

func factories() []factoryWithPriority {
	factoryRegistryLocker.Lock()
	defer factoryRegistryLocker.Unlock()
	var result []factoryWithPriority
	for _, factory := range factoryRegistry {
		result = append(result, factory)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Names returns the names of the registered engines, the most preferred first.
func Names() []string {
	var names []string
	for _, factory := range factories() {
		names = append(names, factory.Name)
	}
	return names
}

// New constructs the engine with the given name; EngineAuto is resolved
// with NewAuto.
func New(
	ctx context.Context,
	name string,
) (noisesuppression.NoiseSuppression, error) {
	if name == EngineAuto {
		return NewAuto(ctx)
	}

	factoryRegistryLocker.Lock()
	factory, ok := factoryRegistry[name]
	factoryRegistryLocker.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: '%s' (known: %v)", ErrUnknownEngine, name, Names())
	}

	ns, err := factory.NewNoiseSuppression(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize engine '%s': %w", name, err)
	}
	return ns, nil
}

// NewAuto constructs the first engine (by priority) that could be initialized.
func NewAuto(
	ctx context.Context,
) (noisesuppression.NoiseSuppression, error) {
	var mErr *multierror.Error
	for _, factory := range factories() {
		ns, err := factory.NewNoiseSuppression(ctx)
		if err != nil {
			logger.Debugf(ctx, "unable to initialize engine '%s': %v", factory.Name, err)
			mErr = multierror.Append(mErr, fmt.Errorf("engine '%s': %w", factory.Name, err))
			continue
		}
		logger.Debugf(ctx, "selected engine '%s'", factory.Name)
		return ns, nil
	}
	if err := mErr.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("unable to initialize any noise suppression engine: %w", err)
	}
	return nil, fmt.Errorf("no noise suppression engines are registered")
}
