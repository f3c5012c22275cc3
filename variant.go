package wmi

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// VariantKind enumerates the value kinds a Variant can hold. The names follow
// the OLE VARTYPE mnemonics (I4 = 32-bit signed integer, R8 = 64-bit float,
// and so on).
type VariantKind int

const (
	KindEmpty VariantKind = iota
	KindNull
	KindBool
	KindI1
	KindI2
	KindI4
	KindI8
	KindUI1
	KindUI2
	KindUI4
	KindUI8
	KindR4
	KindR8
	KindString
	KindArray
	KindObject
)

var variantKindNames = map[VariantKind]string{
	KindEmpty:  "Empty",
	KindNull:   "Null",
	KindBool:   "Bool",
	KindI1:     "I1",
	KindI2:     "I2",
	KindI4:     "I4",
	KindI8:     "I8",
	KindUI1:    "UI1",
	KindUI2:    "UI2",
	KindUI4:    "UI4",
	KindUI8:    "UI8",
	KindR4:     "R4",
	KindR8:     "R8",
	KindString: "String",
	KindArray:  "Array",
	KindObject: "Object",
}

func (k VariantKind) String() string {
	if name, ok := variantKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("VariantKind(%d)", int(k))
}

// Variant is a tagged union mirroring the COM VARIANT values WMI hands back.
// It is the intermediate representation of a result row property before any
// decoding into user types happens.
//
// The zero value is the Empty variant.
type Variant struct {
	kind VariantKind

	b   bool
	i   int64
	u   uint64
	f   float64
	s   string
	arr []Variant
	obj *Object
}

// Constructors. One per kind, so a Variant can never hold a value that
// disagrees with its kind tag.

func VarEmpty() Variant            { return Variant{kind: KindEmpty} }
func VarNull() Variant             { return Variant{kind: KindNull} }
func VarBool(v bool) Variant       { return Variant{kind: KindBool, b: v} }
func VarI1(v int8) Variant         { return Variant{kind: KindI1, i: int64(v)} }
func VarI2(v int16) Variant        { return Variant{kind: KindI2, i: int64(v)} }
func VarI4(v int32) Variant        { return Variant{kind: KindI4, i: int64(v)} }
func VarI8(v int64) Variant        { return Variant{kind: KindI8, i: v} }
func VarUI1(v uint8) Variant       { return Variant{kind: KindUI1, u: uint64(v)} }
func VarUI2(v uint16) Variant      { return Variant{kind: KindUI2, u: uint64(v)} }
func VarUI4(v uint32) Variant      { return Variant{kind: KindUI4, u: uint64(v)} }
func VarUI8(v uint64) Variant      { return Variant{kind: KindUI8, u: v} }
func VarR4(v float32) Variant      { return Variant{kind: KindR4, f: float64(v)} }
func VarR8(v float64) Variant      { return Variant{kind: KindR8, f: v} }
func VarString(v string) Variant   { return Variant{kind: KindString, s: v} }
func VarArray(v []Variant) Variant { return Variant{kind: KindArray, arr: v} }
func VarObject(v *Object) Variant  { return Variant{kind: KindObject, obj: v} }

// Kind returns the kind tag of the variant.
func (v Variant) Kind() VariantKind { return v.kind }

// IsNil reports whether the variant carries no value (Empty or Null).
func (v Variant) IsNil() bool { return v.kind == KindEmpty || v.kind == KindNull }

// Bool returns the boolean payload, if any.
func (v Variant) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Int returns the payload of any signed integer kind widened to int64.
func (v Variant) Int() (int64, bool) {
	switch v.kind {
	case KindI1, KindI2, KindI4, KindI8:
		return v.i, true
	}
	return 0, false
}

// Uint returns the payload of any unsigned integer kind widened to uint64.
func (v Variant) Uint() (uint64, bool) {
	switch v.kind {
	case KindUI1, KindUI2, KindUI4, KindUI8:
		return v.u, true
	}
	return 0, false
}

// Float returns the payload of R4/R8 widened to float64.
func (v Variant) Float() (float64, bool) {
	switch v.kind {
	case KindR4, KindR8:
		return v.f, true
	}
	return 0, false
}

// Str returns the string payload, if any. Named Str to keep String free for
// the fmt.Stringer rendering.
func (v Variant) Str() (string, bool) {
	return v.s, v.kind == KindString
}

// Array returns the element slice of an Array variant. The slice is shared,
// not copied.
func (v Variant) Array() ([]Variant, bool) {
	return v.arr, v.kind == KindArray
}

// Object returns the embedded WMI object of an Object variant.
func (v Variant) Object() (*Object, bool) {
	return v.obj, v.kind == KindObject
}

// Value returns the payload as a native Go value: bool, int8..int64,
// uint8..uint64, float32/float64, string, []Variant or *Object. Empty and
// Null return nil.
func (v Variant) Value() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindI1:
		return int8(v.i)
	case KindI2:
		return int16(v.i)
	case KindI4:
		return int32(v.i)
	case KindI8:
		return v.i
	case KindUI1:
		return uint8(v.u)
	case KindUI2:
		return uint16(v.u)
	case KindUI4:
		return uint32(v.u)
	case KindUI8:
		return v.u
	case KindR4:
		return float32(v.f)
	case KindR8:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		return v.arr
	case KindObject:
		return v.obj
	}
	return nil
}

func (v Variant) String() string {
	switch v.kind {
	case KindEmpty:
		return "<empty>"
	case KindNull:
		return "<null>"
	case KindString:
		return v.s
	default:
		return fmt.Sprintf("%v", v.Value())
	}
}

// MarshalJSON renders the bare payload, untagged. Empty and Null encode as
// JSON null.
func (v Variant) MarshalJSON() ([]byte, error) {
	if v.IsNil() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Value())
}

// CIMType is the CIM property type reported by WMI for each property of a
// class object. Values per MS-WMIO CimType.
//
// Ref: https://docs.microsoft.com/en-us/openspecs/windows_protocols/ms-wmio/f307b8b1-67d5-4dcf-acad-6e7efeb2b23c
type CIMType uint16

const (
	CIMEmpty     CIMType = 0
	CIMSint16    CIMType = 2
	CIMSint32    CIMType = 3
	CIMReal32    CIMType = 4
	CIMReal64    CIMType = 5
	CIMString    CIMType = 8
	CIMBoolean   CIMType = 11
	CIMObject    CIMType = 13
	CIMSint8     CIMType = 16
	CIMUint8     CIMType = 17
	CIMUint16    CIMType = 18
	CIMUint32    CIMType = 19
	CIMSint64    CIMType = 20
	CIMUint64    CIMType = 21
	CIMDatetime  CIMType = 101
	CIMReference CIMType = 102
	CIMChar16    CIMType = 103
	CIMIllegal   CIMType = 0xfff

	// CIMFlagArray is ORed onto the base type when the property is an array.
	CIMFlagArray CIMType = 0x2000
)

// CoerceToCIMType re-types the variant according to the CIM type declared for
// the property it was read from. WMI transports several CIM types in a wider
// or stringly VARIANT (uint64 arrives as a string, uint8 may arrive as i4),
// so the raw variant kind alone does not tell the real property type.
//
// Array-typed properties carry CIMFlagArray; elements are coerced with the
// base type, and a scalar value is wrapped into a one-element array. Null and
// Empty coerce to an empty array.
func (v Variant) CoerceToCIMType(ct CIMType) (Variant, error) {
	if ct == CIMEmpty {
		return VarNull(), nil
	}

	if ct&CIMFlagArray != 0 {
		base := ct & 0xff
		switch v.kind {
		case KindArray:
			out := make([]Variant, len(v.arr))
			for i, el := range v.arr {
				coerced, err := el.CoerceToCIMType(base)
				if err != nil {
					return Variant{}, err
				}
				out[i] = coerced
			}
			return VarArray(out), nil
		case KindEmpty, KindNull:
			return VarArray([]Variant{}), nil
		default:
			coerced, err := v.CoerceToCIMType(base)
			if err != nil {
				return Variant{}, err
			}
			return VarArray([]Variant{coerced}), nil
		}
	}

	switch v.kind {
	case KindEmpty, KindNull:
		return v, nil

	case KindI1, KindI2, KindI4, KindI8:
		return coerceNum(ct, v.i, uint64(v.i), float64(v.i), v)
	case KindUI1, KindUI2, KindUI4, KindUI8:
		return coerceNum(ct, int64(v.u), v.u, float64(v.u), v)
	case KindR4, KindR8:
		return coerceNum(ct, int64(v.f), uint64(v.f), v.f, v)

	case KindBool:
		if ct == CIMBoolean {
			return v, nil
		}
		return Variant{}, errors.Errorf("wmi: cannot coerce a Bool variant into CIM type %d", ct)

	case KindString:
		return coerceString(ct, v.s)

	case KindObject:
		if ct == CIMObject {
			return v, nil
		}
		return Variant{}, errors.Errorf("wmi: cannot coerce an Object variant into CIM type %d", ct)

	case KindArray:
		// A non-array CIM type for an array variant: coerce element-wise and
		// keep the array shape, as the original value is authoritative.
		out := make([]Variant, len(v.arr))
		for i, el := range v.arr {
			coerced, err := el.CoerceToCIMType(ct)
			if err != nil {
				return Variant{}, err
			}
			out[i] = coerced
		}
		return VarArray(out), nil
	}

	return Variant{}, errors.Errorf("wmi: cannot coerce %s variant into CIM type %d", v.kind, ct)
}

// coerceNum re-casts a numeric payload into the exact CIM numeric width.
// Casting truncates like a Go conversion does; WMI never reports a CIM type
// narrower than the transported value, so no data is lost in practice.
func coerceNum(ct CIMType, i int64, u uint64, f float64, orig Variant) (Variant, error) {
	switch ct {
	case CIMUint8:
		return VarUI1(uint8(u)), nil
	case CIMUint16:
		return VarUI2(uint16(u)), nil
	case CIMUint32:
		return VarUI4(uint32(u)), nil
	case CIMUint64:
		return VarUI8(u), nil
	case CIMSint8:
		return VarI1(int8(i)), nil
	case CIMSint16:
		return VarI2(int16(i)), nil
	case CIMSint32:
		return VarI4(int32(i)), nil
	case CIMSint64:
		return VarI8(i), nil
	case CIMReal32:
		return VarR4(float32(f)), nil
	case CIMReal64:
		return VarR8(f), nil
	case CIMChar16:
		return VarString(string(rune(uint16(u)))), nil
	}
	return Variant{}, errors.Errorf("wmi: value %v cannot be coerced into CIM type %d", orig, ct)
}

// coerceString parses stringly-transported numerics back into their CIM
// numeric type. CIM_DATETIME and CIM_REFERENCE have no dedicated variant
// kind and stay strings.
func coerceString(ct CIMType, s string) (Variant, error) {
	switch ct {
	case CIMString, CIMChar16, CIMDatetime, CIMReference:
		return VarString(s), nil
	case CIMReal64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Variant{}, err
		}
		return VarR8(f), nil
	case CIMReal32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Variant{}, err
		}
		return VarR4(float32(f)), nil
	case CIMUint64:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Variant{}, err
		}
		return VarUI8(u), nil
	case CIMSint64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Variant{}, err
		}
		return VarI8(i), nil
	case CIMUint32:
		u, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return Variant{}, err
		}
		return VarUI4(uint32(u)), nil
	case CIMSint32:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Variant{}, err
		}
		return VarI4(int32(i)), nil
	case CIMUint16:
		u, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return Variant{}, err
		}
		return VarUI2(uint16(u)), nil
	case CIMSint16:
		i, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return Variant{}, err
		}
		return VarI2(int16(i)), nil
	case CIMUint8:
		u, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return Variant{}, err
		}
		return VarUI1(uint8(u)), nil
	case CIMSint8:
		i, err := strconv.ParseInt(s, 10, 8)
		if err != nil {
			return Variant{}, err
		}
		return VarI1(int8(i)), nil
	}
	// Anything else (object paths from providers, vendor extensions) is kept
	// as the raw string.
	return VarString(s), nil
}
