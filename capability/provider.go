// Package capability defines the boundary between the workflow engine and
// the systems it orchestrates: a Provider exposes named actions invoked with
// a key/value argument map and returning a key/value result map.
package capability

import (
	"context"
	"reflect"

	"github.com/viant/toolbox"
)

// Provider exposes a set of invocable actions.
type Provider interface {
	Name() string
	Actions() Signatures
	Invoke(ctx context.Context, action string, args map[string]interface{}) (map[string]interface{}, error)
}

// Closer is implemented by providers holding releasable resources.
type Closer interface {
	Close(ctx context.Context) error
}

type Signatures []Signature

// Signature describes one provider action.
type Signature struct {
	Name        string
	Description string
	Input       reflect.Type
	Output      reflect.Type
}

func (s Signatures) Lookup(name string) *Signature {
	for i := range s {
		sig := &s[i]
		if sig.Name == name {
			return sig
		}
	}
	return nil
}

// Names returns action names in declaration order.
func (s Signatures) Names() []string {
	result := make([]string, 0, len(s))
	for i := range s {
		result = append(result, s[i].Name)
	}
	return result
}

// AssignInput populates a typed action input from an argument map.
func AssignInput(args map[string]interface{}, target interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return toolbox.DefaultConverter.AssignConverted(target, args)
}

// OutputMap converts a typed action output to the engine's result map form.
func OutputMap(output interface{}) (map[string]interface{}, error) {
	if output == nil {
		return map[string]interface{}{}, nil
	}
	var result = map[string]interface{}{}
	if err := toolbox.DefaultConverter.AssignConverted(&result, output); err != nil {
		return nil, err
	}
	return result, nil
}
