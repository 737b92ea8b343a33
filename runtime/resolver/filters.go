package resolver

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/viant/toolbox"
)

// applyFilters runs the term's filter chain over a resolved value.
func (s *Service) applyFilters(value interface{}, filters []*filterCall, from map[string]interface{}) (interface{}, error) {
	var err error
	for _, filter := range filters {
		value, err = s.applyFilter(value, filter, from)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

func (s *Service) applyFilter(value interface{}, filter *filterCall, from map[string]interface{}) (interface{}, error) {
	args := evalArguments(filter.args, from)
	switch filter.name {
	case "upper":
		return strings.ToUpper(toolbox.AsString(value)), nil
	case "lower":
		return strings.ToLower(toolbox.AsString(value)), nil
	case "title":
		return titleCase(toolbox.AsString(value)), nil
	case "trim":
		return strings.TrimSpace(toolbox.AsString(value)), nil
	case "replace":
		if len(args) != 2 {
			return nil, syntaxError(filter.name, "replace expects 2 arguments, got %d", len(args))
		}
		return strings.ReplaceAll(toolbox.AsString(value), toolbox.AsString(args[0]), toolbox.AsString(args[1])), nil
	case "join":
		separator := ","
		if len(args) > 0 {
			separator = toolbox.AsString(args[0])
		}
		return joinValue(value, separator), nil
	case "length", "len":
		return lengthOf(value), nil
	case "slice":
		if len(args) == 0 || len(args) > 2 {
			return nil, syntaxError(filter.name, "slice expects 1 or 2 arguments, got %d", len(args))
		}
		start := toolbox.AsInt(args[0])
		end := -1
		if len(args) == 2 {
			end = toolbox.AsInt(args[1])
		}
		return sliceValue(value, start, end), nil
	case "default":
		if len(args) != 1 {
			return nil, syntaxError(filter.name, "default expects 1 argument, got %d", len(args))
		}
		if isEmpty(value) {
			return args[0], nil
		}
		return value, nil
	}
	return nil, syntaxError(filter.name, "unknown filter %q", filter.name)
}

// evalArguments resolves filter/function arguments; a path argument that does
// not resolve falls back to its raw text so that e.g. env(HOME) receives the
// bare name.
func evalArguments(args []*argument, from map[string]interface{}) []interface{} {
	result := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if arg.hasLit {
			result = append(result, arg.literal)
			continue
		}
		if value, ok := navigate(arg.path, from); ok {
			result = append(result, value)
			continue
		}
		result = append(result, arg.raw)
	}
	return result
}

func titleCase(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	boundary := true
	for _, r := range text {
		if unicode.IsSpace(r) {
			boundary = true
			b.WriteRune(r)
			continue
		}
		if boundary {
			b.WriteRune(unicode.ToUpper(r))
			boundary = false
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func joinValue(value interface{}, separator string) string {
	switch actual := value.(type) {
	case []string:
		return strings.Join(actual, separator)
	case []interface{}:
		items := make([]string, 0, len(actual))
		for _, item := range actual {
			items = append(items, toolbox.AsString(item))
		}
		return strings.Join(items, separator)
	}
	return toolbox.AsString(value)
}

func lengthOf(value interface{}) int {
	if value == nil {
		return 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	}
	return 0
}

func sliceValue(value interface{}, start, end int) interface{} {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		text := rv.String()
		return text[clamp(start, len(text)):clampEnd(end, len(text))]
	case reflect.Slice, reflect.Array:
		from := clamp(start, rv.Len())
		to := clampEnd(end, rv.Len())
		result := make([]interface{}, 0, to-from)
		for i := from; i < to; i++ {
			result = append(result, rv.Index(i).Interface())
		}
		return result
	}
	return value
}

func clamp(index, size int) int {
	if index < 0 {
		index += size
	}
	if index < 0 {
		return 0
	}
	if index > size {
		return size
	}
	return index
}

func clampEnd(index, size int) int {
	if index == -1 {
		return size
	}
	return clamp(index, size)
}

// isEmpty reports whether a value is nil or renders to an empty string.
func isEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	if text, ok := value.(string); ok {
		return text == ""
	}
	return false
}
