package exec

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/stepflow/capability"
)

const Name = "system/exec"

func (s *Service) Name() string {
	return Name
}

func (s *Service) Actions() capability.Signatures {
	return []capability.Signature{
		{
			Name: "execute",
			Description: `Executes one or more shell commands on the target host.
Each entry in the commands array is started as an independent shell invocation;
options and arguments belong in the same string as their command.`,
			Input:  reflect.TypeOf(&Input{}),
			Output: reflect.TypeOf(&Output{}),
		},
	}
}

// InitTypes registers exec result types for metadata references.
func (s *Service) InitTypes(types *capability.Types) {
	types.Register(capability.NewXType(Command{}))
	types.Register(capability.NewXType(Output{}))
}

// Invoke dispatches the execute action.
func (s *Service) Invoke(ctx context.Context, action string, args map[string]interface{}) (map[string]interface{}, error) {
	switch strings.ToLower(action) {
	case "execute":
		input := &Input{}
		if err := capability.AssignInput(args, input); err != nil {
			return nil, capability.NewInvalidInputError(args)
		}
		output := &Output{}
		if err := s.Execute(ctx, input, output); err != nil {
			return nil, err
		}
		return capability.OutputMap(output)
	default:
		return nil, capability.NewActionNotFoundError(Name, action)
	}
}
