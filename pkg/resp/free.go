package resp

import (
	"reflect"

	"github.com/hashicorp/go-multierror"
)

// freer is implemented by container shapes that know precisely which of
// their fields were actually allocated (Optional/OrErr/OrFullErr only free
// their wrapped value when it was populated; DynamicReply only frees the
// branch matching its Kind). Plain Records have no such conditional
// structure and are freed by iterating every field.
type freer interface {
	respFree(a Allocator) error
}

// Free releases every heap allocation reachable from v, which must be a
// pointer to a value previously produced by DecodeAlloc using the same
// Allocator a. It walks the exact shape DecodeAlloc built: []byte bodies,
// slice/pointer cells, and the conditional branches of Optional, OrErr,
// OrFullErr, KV, DynamicReply, and Records built from them.
//
// Free is best-effort: if one branch's release returns an error, it keeps
// walking every other reachable branch and returns an aggregate error
// covering all of them, rather than abandoning the rest of the release.
// Unexported struct fields are skipped without error.
func Free(v any, a Allocator) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return newProtocolError("Free target must be a pointer, got %T", v)
	}
	if rv.IsNil() {
		return nil
	}
	return freeValue(rv.Elem(), a)
}

func freeValue(rv reflect.Value, a Allocator) error {
	if !rv.IsValid() {
		return nil
	}
	if rv.CanInterface() {
		if f, ok := rv.Interface().(freer); ok {
			return f.respFree(a)
		}
	}
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		a.FreeCell()
		return freeValue(rv.Elem(), a)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			a.FreeBytes(rv.Bytes())
			return nil
		}
		a.FreeCell()
		return freeIndexed(rv, a)
	case reflect.Array:
		return freeIndexed(rv, a)
	case reflect.Struct:
		return freeStructFields(rv, a)
	default:
		// Numeric primitives, bool, FixBuf, Void, Tag: never allocator-tracked.
		return nil
	}
}

func freeIndexed(rv reflect.Value, a Allocator) error {
	var errs *multierror.Error
	for i := 0; i < rv.Len(); i++ {
		if err := freeValue(rv.Index(i), a); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func freeStructFields(rv reflect.Value, a Allocator) error {
	var errs *multierror.Error
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanInterface() {
			continue
		}
		if err := freeValue(f, a); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
