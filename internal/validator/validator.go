package validator

import (
	"fmt"
	"reflect"
)

// Validate reports a missing dependency of the named component. A dependency
// is missing when it is nil, a nil pointer, interface, map, slice, channel or
// function, or a zero value of any other kind.
func Validate(name string, deps ...any) error {
	for i, dep := range deps {
		if missing(dep) {
			return fmt.Errorf("missing required deps for component: %s (argument %d)", name, i)
		}
	}

	return nil
}

func missing(dep any) bool {
	if dep == nil {
		return true
	}

	v := reflect.ValueOf(dep)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}
