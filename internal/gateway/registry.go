package gateway

import (
	"fmt"
	"sort"
	"strings"

	"nclexkeys/backend/internal/config"
)

type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	registry := &Registry{adapters: map[string]Adapter{}}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		registry.adapters[strings.ToLower(adapter.Name())] = adapter
	}
	return registry
}

// NewRegistryFromConfig builds an adapter for every gateway that has a secret key configured.
func NewRegistryFromConfig(cfg config.PaymentsConfig) (*Registry, error) {
	var adapters []Adapter
	for name, gw := range cfg.Gateways {
		if strings.TrimSpace(gw.SecretKey) == "" {
			continue
		}
		var (
			adapter Adapter
			err     error
		)
		switch strings.ToLower(name) {
		case PaystackName:
			adapter, err = NewPaystack(gw.SecretKey)
		case FlutterwaveName:
			adapter, err = NewFlutterwave(gw.SecretKey)
		default:
			return nil, fmt.Errorf("%w: unknown gateway %q", ErrInvalidConfig, name)
		}
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}
	return NewRegistry(adapters...), nil
}

func (r *Registry) Get(name string) (Adapter, error) {
	if r == nil {
		return nil, ErrProviderNotFound
	}
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return adapter, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
