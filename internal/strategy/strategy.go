// Package strategy defines the strategy capability interface and a registry
// mapping strategy names to constructors.
package strategy

import (
	"bytes"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Strategy turns bars into order intents.
type Strategy interface {
	// Name returns the registered identifier of the strategy.
	Name() string
	// Init receives the named configuration options before the first bar.
	Init(params map[string]any) error
	// OnBar updates indicator state and returns zero or more intents.
	OnBar(bar types.Bar) ([]types.OrderIntent, error)
}

// DecodeParams copies named parameters into target, a pointer to a struct
// with yaml tags pre-filled with defaults, and validates the result.
// Unknown parameter names are rejected.
func DecodeParams(params map[string]any, target any) error {
	if len(params) > 0 {
		raw, err := yaml.Marshal(params)
		if err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to encode strategy params", err)
		}

		decoder := yaml.NewDecoder(bytes.NewReader(raw))
		decoder.KnownFields(true)

		if err := decoder.Decode(target); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy params", err)
		}
	}

	if err := validator.New().Struct(target); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy params", err)
	}

	return nil
}
