package resolver

import (
	"reflect"
	"strings"
)

// navigate walks a parsed path against the context. The boolean reports
// whether the full path resolved to a value.
func navigate(path []*segment, from map[string]interface{}) (interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}
	root := path[0]
	if root.isIndex {
		return nil, false
	}
	current, ok := from[root.name]
	if !ok {
		return nil, false
	}
	for _, seg := range path[1:] {
		if seg.isIndex {
			current, ok = arrayElement(current, seg.index)
		} else {
			current, ok = property(current, seg.name)
		}
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// property reads a named attribute from maps or structs.
func property(obj interface{}, name string) (interface{}, bool) {
	if obj == nil {
		return nil, false
	}
	switch actual := obj.(type) {
	case map[string]interface{}:
		if value, ok := actual[name]; ok {
			return value, true
		}
		// Fallback to case-insensitive lookup so that `${exec.Stdout}` can
		// resolve a map key `stdout` that originated from JSON encoding.
		for k, v := range actual {
			if strings.EqualFold(k, name) {
				return v, true
			}
		}
		return nil, false
	case map[string]string:
		value, ok := actual[name]
		return value, ok
	}

	// Generic map handling via reflection: support map[string]T for any T
	if value, ok := mapValue(obj, name); ok {
		return value, true
	}

	// Structs via reflection, exported fields only
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, false
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, false
	}
	field := val.FieldByName(name)
	if !field.IsValid() {
		typ := val.Type()
		for i := 0; i < typ.NumField(); i++ {
			if strings.EqualFold(typ.Field(i).Name, name) {
				field = val.Field(i)
				break
			}
		}
		if !field.IsValid() {
			return nil, false
		}
	}
	if !field.CanInterface() {
		return nil, false
	}
	return field.Interface(), true
}

// mapValue attempts to read a value from any map with string keys via reflection.
func mapValue(obj interface{}, key string) (interface{}, bool) {
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, false
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Map {
		return nil, false
	}
	if val.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	v := val.MapIndex(reflect.ValueOf(key))
	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	return v.Interface(), true
}

// arrayElement extracts an element from an array or slice.
func arrayElement(obj interface{}, index int) (interface{}, bool) {
	if obj == nil {
		return nil, false
	}
	switch actual := obj.(type) {
	case []interface{}:
		if index >= 0 && index < len(actual) {
			return actual[index], true
		}
		return nil, false
	case []string:
		if index >= 0 && index < len(actual) {
			return actual[index], true
		}
		return nil, false
	}
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, false
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Array && val.Kind() != reflect.Slice {
		return nil, false
	}
	if index < 0 || index >= val.Len() {
		return nil, false
	}
	element := val.Index(index)
	if !element.CanInterface() {
		return nil, false
	}
	return element.Interface(), true
}
