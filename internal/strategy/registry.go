package strategy

import (
	"slices"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-core/internal/version"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// Descriptor describes a registrable strategy.
type Descriptor struct {
	Name        string
	Description string
	// EngineVersion is the engine version constraint the strategy was
	// written against, see version.CheckCompatibility.
	EngineVersion string
	// New returns a fresh, uninitialized instance.
	New func() Strategy
	// Params is the zero value of the parameter struct, used for schemas.
	Params any
}

// Registry maps strategy names to descriptors.
type Registry struct {
	mu            sync.RWMutex
	engineVersion string
	descriptors   map[string]Descriptor
}

// NewRegistry creates an empty registry for the given engine version.
func NewRegistry(engineVersion string) *Registry {
	return &Registry{
		engineVersion: engineVersion,
		descriptors:   make(map[string]Descriptor),
	}
}

// DefaultRegistry returns a registry holding the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry(version.GetVersion())
	if err := r.Register(SmaCrossDescriptor()); err != nil {
		panic(err)
	}

	return r
}

// Register adds a descriptor. Duplicate names and incompatible engine
// versions are rejected.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" || d.New == nil {
		return errors.New(errors.ErrCodeStrategyConfigError, "strategy descriptor needs a name and a constructor")
	}

	if err := version.CheckCompatibility(r.engineVersion, d.EngineVersion); err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "strategy %s is not compatible with engine %s", d.Name, r.engineVersion)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[d.Name]; exists {
		return errors.Newf(errors.ErrCodeStrategyExists, "strategy %s is already registered", d.Name)
	}

	r.descriptors[d.Name] = d

	return nil
}

// New builds and initializes the strategy registered under name.
func (r *Registry) New(name string, params map[string]any) (Strategy, error) {
	d, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	s := d.New()
	if err := s.Init(params); err != nil {
		if errors.GetCode(err) == errors.ErrCodeStrategyConfigError {
			return nil, err
		}

		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to initialize strategy %s", name)
	}

	return s, nil
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.descriptors[name]
	if !ok {
		return Descriptor{}, errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy: %s", name)
	}

	return d, nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Schema returns the JSON schema of a strategy's parameters.
func (r *Registry) Schema(name string) (*jsonschema.Schema, error) {
	d, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	if d.Params == nil {
		return &jsonschema.Schema{Type: "object"}, nil
	}

	reflector := jsonschema.Reflector{
		DoNotReference: true,
		FieldNameTag:   "yaml",
	}
	schema := reflector.Reflect(d.Params)
	schema.Title = d.Name
	schema.Description = d.Description

	return schema, nil
}
