package nop

import (
	"context"
	"reflect"

	"github.com/viant/stepflow/capability"
)

const name = "nop"

// Service performs no operation; useful as a placeholder step.
type Service struct{}

type Input struct{}

type Output struct{}

// New creates a nop service
func New() *Service {
	return &Service{}
}

// Name returns the provider name
func (s *Service) Name() string {
	return name
}

// Actions returns the provider actions
func (s *Service) Actions() capability.Signatures {
	return []capability.Signature{
		{
			Name:        "nop",
			Description: "Performs no operation and returns immediately.",
			Input:       reflect.TypeOf(&Input{}),
			Output:      reflect.TypeOf(&Output{}),
		},
	}
}

// Invoke does nothing
func (s *Service) Invoke(ctx context.Context, action string, args map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}
