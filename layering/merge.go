// Package layering provides reflection-based helpers for detaching and composing
// plain-data values.
package layering

import "reflect"

// MergeLayers composes layers ordered from strongest to weakest. The result
// starts as a deep copy of the first layer and each weaker layer only fills
// what is still missing. Nil references and zero scalars count as missing, so
// a weaker layer cannot be overridden back to a zero value; use a pointer when
// an explicit zero must win. Slices are taken whole from the strongest layer
// that sets them. Maps are unioned key by key.
func MergeLayers[T any](layers ...T) T {
	var out T
	if len(layers) == 0 {
		return out
	}
	target := reflect.ValueOf(&out).Elem()
	if cloned := cloneValue(reflect.ValueOf(&layers[0]).Elem()); cloned.IsValid() {
		target.Set(cloned)
	}
	for i := 1; i < len(layers); i++ {
		fill(target, reflect.ValueOf(&layers[i]).Elem())
	}
	return out
}

// fill copies into the settable dst whatever src provides that dst lacks.
func fill(dst, src reflect.Value) {
	if !src.IsValid() || src.Type() != dst.Type() {
		return
	}
	switch dst.Kind() {
	case reflect.Struct:
		for i := 0; i < dst.NumField(); i++ {
			if field := dst.Field(i); field.CanSet() {
				fill(field, src.Field(i))
			}
		}
	case reflect.Pointer:
		switch {
		case src.IsNil():
		case dst.IsNil():
			dst.Set(cloneValue(src))
		case composite(dst.Elem().Kind()):
			fill(dst.Elem(), src.Elem())
		}
	case reflect.Interface:
		fillInterface(dst, src)
	case reflect.Map:
		fillMap(dst, src)
	case reflect.Slice:
		if dst.IsNil() && !src.IsNil() {
			dst.Set(cloneValue(src))
		}
	case reflect.Array:
		for i := 0; i < dst.Len(); i++ {
			fill(dst.Index(i), src.Index(i))
		}
	default:
		if dst.IsZero() {
			dst.Set(src)
		}
	}
}

func fillInterface(dst, src reflect.Value) {
	if src.IsNil() {
		return
	}
	if dst.IsNil() {
		dst.Set(cloneValue(src))
		return
	}
	// Interface contents are not addressable; fill a copy and store it back.
	held := reflect.New(dst.Elem().Type()).Elem()
	held.Set(dst.Elem())
	fill(held, src.Elem())
	dst.Set(held)
}

func fillMap(dst, src reflect.Value) {
	if src.IsNil() {
		return
	}
	if dst.IsNil() {
		dst.Set(cloneValue(src))
		return
	}
	iter := src.MapRange()
	for iter.Next() {
		key := iter.Key()
		existing := dst.MapIndex(key)
		if !existing.IsValid() {
			dst.SetMapIndex(key, cloneValue(iter.Value()))
			continue
		}
		entry := reflect.New(existing.Type()).Elem()
		entry.Set(existing)
		fill(entry, iter.Value())
		dst.SetMapIndex(key, entry)
	}
}

func composite(kind reflect.Kind) bool {
	switch kind {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Interface:
		return true
	default:
		return false
	}
}
