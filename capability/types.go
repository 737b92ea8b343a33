package capability

import (
	"reflect"
	"strings"

	"github.com/viant/x"
)

// Types registers Go types declared by providers so that workflow metadata
// can reference them by name, with optional []/map modifiers.
type Types struct {
	x.Registry
}

// Lookup returns a registered type, honouring a leading slice or map
// modifier such as "[]Command" or "map[string]Command".
func (t *Types) Lookup(dataType string) *x.Type {
	typeModifier := ""
	if idx := strings.LastIndex(dataType, "]"); idx != -1 {
		typeModifier = dataType[:idx+1]
		dataType = dataType[idx+1:]
	}
	ret := t.Registry.Lookup(dataType)
	if ret == nil {
		return nil
	}
	rType := ret.Type
	switch strings.TrimSpace(typeModifier) {
	case "[]":
		rType = reflect.SliceOf(rType)
	case "[][]":
		rType = reflect.SliceOf(reflect.SliceOf(rType))
	case "map[string]":
		rType = reflect.MapOf(reflect.TypeOf(""), rType)
	case "map[string][]":
		rType = reflect.MapOf(reflect.TypeOf(""), reflect.SliceOf(rType))
	}
	if rType != ret.Type {
		return x.NewType(rType)
	}
	return ret
}

// NewTypes creates a type registry.
func NewTypes(options ...x.RegistryOption) *Types {
	return &Types{Registry: *x.NewRegistry(options...)}
}

// NewXType builds an x.Type from a value's dynamic type.
func NewXType(value interface{}, options ...x.Option) *x.Type {
	return x.NewType(reflect.TypeOf(value), options...)
}
