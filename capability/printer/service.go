package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/viant/stepflow/capability"
)

const name = "printer"

// Service prints messages to an output stream.
type Service struct {
	writer io.Writer
}

type Input struct {
	Message string
}

type Output struct{}

// Option customises the printer service.
type Option func(*Service)

// WithWriter overrides the output stream, mostly for tests.
func WithWriter(writer io.Writer) Option {
	return func(s *Service) {
		s.writer = writer
	}
}

// New creates a printer service
func New(options ...Option) *Service {
	s := &Service{writer: os.Stdout}
	for _, option := range options {
		option(s)
	}
	return s
}

// Name returns the provider name
func (s *Service) Name() string {
	return name
}

// Actions returns the provider actions
func (s *Service) Actions() capability.Signatures {
	return []capability.Signature{
		{
			Name:        "print",
			Description: "Prints the given message to standard output.",
			Input:       reflect.TypeOf(&Input{}),
			Output:      reflect.TypeOf(&Output{}),
		},
	}
}

// Invoke prints the message argument
func (s *Service) Invoke(ctx context.Context, action string, args map[string]interface{}) (map[string]interface{}, error) {
	switch strings.ToLower(action) {
	case "print":
		input := &Input{}
		if err := capability.AssignInput(args, input); err != nil {
			return nil, capability.NewInvalidInputError(args)
		}
		fmt.Fprintln(s.writer, input.Message)
		return map[string]interface{}{"message": input.Message}, nil
	default:
		return nil, capability.NewActionNotFoundError(name, action)
	}
}
