package resp

import (
	"reflect"
	"sync"
)

// StrictRecord is implemented by a Record target that wants an unknown wire
// key to be a hard UnknownFieldError instead of being skipped. Most Records
// should tolerate unknown fields, since a server may add reply fields the
// client predates; opt in only where that would mask a real bug.
type StrictRecord interface {
	RespStrict() bool
}

type recordField struct {
	name     string
	index    int
	optional bool
}

type recordShape struct {
	byName map[string]recordField
	all    []recordField
}

var recordShapeCache sync.Map // reflect.Type -> *recordShape

var optionalMarkerType = reflect.TypeOf((*interface{ optionalMarker() })(nil)).Elem()

func recordShapeFor(rt reflect.Type) *recordShape {
	if v, ok := recordShapeCache.Load(rt); ok {
		return v.(*recordShape)
	}
	shape := &recordShape{byName: make(map[string]recordField, rt.NumField())}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("resp"); ok && tag != "" {
			name = tag
		}
		rf := recordField{
			name:     name,
			index:    i,
			optional: f.Type.Implements(optionalMarkerType),
		}
		shape.byName[name] = rf
		shape.all = append(shape.all, rf)
	}
	actual, _ := recordShapeCache.LoadOrStore(rt, shape)
	return actual.(*recordShape)
}

// decodeRecord decodes a Map or flat-Array-of-pairs frame into a struct,
// using resp struct tags (or the Go field name) as wire keys. Fields whose
// type is Optional[T] may be absent from the wire without error; any other
// field missing from the wire is a MissingFieldError.
func decodeRecord(fr *FrameReader, hdr Header, target any, rv reflect.Value) error {
	pairs, err := recordPairCount(hdr)
	if err != nil {
		return err
	}
	strict := false
	if sr, ok := target.(StrictRecord); ok {
		strict = sr.RespStrict()
	}
	shape := recordShapeFor(rv.Type())
	seen := make(map[string]bool, len(shape.all))
	var keyArr [64]byte
	for i := int64(0); i < pairs; i++ {
		keyBuf := NewFixBuf(keyArr[:0])
		if err := Decode(fr, &keyBuf); err != nil {
			return err
		}
		key := keyBuf.String()
		fld, ok := shape.byName[key]
		if !ok {
			if strict {
				return &UnknownFieldError{Field: key}
			}
			if err := fr.SkipFrame(); err != nil {
				return err
			}
			continue
		}
		if err := Decode(fr, rv.Field(fld.index).Addr().Interface()); err != nil {
			return err
		}
		seen[key] = true
	}
	return checkMissingFields(shape, seen)
}

func decodeRecordAlloc(fr *FrameReader, hdr Header, target any, rv reflect.Value, a Allocator) error {
	pairs, err := recordPairCount(hdr)
	if err != nil {
		return err
	}
	strict := false
	if sr, ok := target.(StrictRecord); ok {
		strict = sr.RespStrict()
	}
	shape := recordShapeFor(rv.Type())
	seen := make(map[string]bool, len(shape.all))
	var keyArr [64]byte
	for i := int64(0); i < pairs; i++ {
		keyBuf := NewFixBuf(keyArr[:0])
		if err := Decode(fr, &keyBuf); err != nil {
			return err
		}
		key := keyBuf.String()
		fld, ok := shape.byName[key]
		if !ok {
			if strict {
				return &UnknownFieldError{Field: key}
			}
			if err := fr.SkipFrame(); err != nil {
				return err
			}
			continue
		}
		if err := decodeValueAlloc(fr, rv.Field(fld.index).Addr().Interface(), a); err != nil {
			return err
		}
		seen[key] = true
	}
	return checkMissingFields(shape, seen)
}

func checkMissingFields(shape *recordShape, seen map[string]bool) error {
	for _, f := range shape.all {
		if f.optional {
			continue
		}
		if !seen[f.name] {
			return &MissingFieldError{Field: f.name}
		}
	}
	return nil
}

func recordPairCount(hdr Header) (int64, error) {
	switch hdr.Tag {
	case TagMap:
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return 0, err
		}
		return n, nil
	case TagArray:
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return 0, err
		}
		if n%2 != 0 {
			return 0, newProtocolError("record array frame must have even length, got %d", n)
		}
		return n / 2, nil
	default:
		return 0, &UnexpectedTagError{Tag: hdr.Tag, Target: "record"}
	}
}
