package resolver

import (
	"encoding/json"
	"os"
	"time"

	"github.com/viant/stepflow/internal/clock"
	"github.com/viant/stepflow/internal/idgen"
	"github.com/viant/toolbox"
)

// Function is a built-in invocable usable in place of a path, e.g. ${uuid()}.
type Function func(args []interface{}) (interface{}, error)

func builtinFunctions() map[string]Function {
	return map[string]Function{
		"uuid": func([]interface{}) (interface{}, error) {
			return idgen.New(), nil
		},
		"timestamp": func([]interface{}) (interface{}, error) {
			return clock.Now().UTC().Format(time.RFC3339), nil
		},
		"epoch": func([]interface{}) (interface{}, error) {
			return clock.Now().Unix(), nil
		},
		"env": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, syntaxError("env", "env expects 1 argument, got %d", len(args))
			}
			return os.Getenv(toolbox.AsString(args[0])), nil
		},
		"json": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, syntaxError("json", "json expects 1 argument, got %d", len(args))
			}
			data, err := json.Marshal(args[0])
			if err != nil {
				return nil, err
			}
			return string(data), nil
		},
		"fromJson": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, syntaxError("fromJson", "fromJson expects 1 argument, got %d", len(args))
			}
			var result interface{}
			if err := json.Unmarshal([]byte(toolbox.AsString(args[0])), &result); err != nil {
				return nil, err
			}
			return result, nil
		},
		"len": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, syntaxError("len", "len expects 1 argument, got %d", len(args))
			}
			return lengthOf(args[0]), nil
		},
	}
}
