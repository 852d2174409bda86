package internal

import "reflect"

// isEqual is the default equality: == when the dynamic type is comparable,
// reflect.DeepEqual for slices, maps and structs holding them.
func isEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	if va.Comparable() {
		return a == b
	}

	return reflect.DeepEqual(a, b)
}
