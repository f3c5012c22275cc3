//go:build windows
// +build windows

package wmi

import (
	"reflect"
	"strconv"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Unmarshaler is the interface implemented by types that can unmarshal a COM
// object of themselves.
//
// N.B. Unmarshaler currently can't be implemented on non structure types!
type Unmarshaler interface {
	UnmarshalOLE(d Decoder, src *ole.IDispatch) error
}

// Dereferencer is anything that can fetch WMI objects using its object path.
// Used to retrieve object from CIM reference strings, e.g. from
// `Win32_LoggedOnUser`.
//
// Ref:
//
//	https://docs.microsoft.com/en-us/openspecs/windows_protocols/ms-wmio/58e803a6-25f6-4ba6-abdc-b39e1daa66fc
//	https://docs.microsoft.com/en-us/windows/desktop/cimwin32prov/win32-loggedonuser
type Dereferencer interface {
	Dereference(referencePath string) (*ole.VARIANT, error)
}

// Decoder handles "decoding" of `ole.IDispatch` objects into the given
// structure. See `Decoder.Unmarshal` for more info.
type Decoder struct {
	// NonePtrZero specifies if nil values for fields which aren't pointers
	// should be returned as the field types zero value.
	//
	// Setting this to true allows structs without pointer fields to be used
	// without the risk failure should a nil value returned from WMI.
	NonePtrZero bool

	// PtrNil specifies if nil values for pointer fields should be returned
	// as nil.
	//
	// Setting this to true will set pointer fields to nil where WMI
	// returned nil, otherwise the types zero value will be returned.
	PtrNil bool

	// AllowMissingFields specifies that struct fields not present in the
	// query result should not result in an error.
	//
	// Setting this to true allows custom queries to be used with full
	// struct definitions instead of having to define multiple structs.
	AllowMissingFields bool

	// Dereferencer specifies an interface to resolve reference fields.
	// Dereferencer will be invoked on the fields tagged with ",ref" tag, e.g.
	//
	//	Field Type `wmi:"FieldName,ref"`
	//
	// Such fields are fetched as the reference path string, resolved through
	// `Dereference`, and the resulting object fills the actual field value.
	//
	// Dereferencer is automatically set by all query calls. Setting it to nil
	// will cause all fields tagged as references to return resolution error.
	Dereferencer Dereferencer
}

var timeType = reflect.TypeOf(time.Time{})

// Unmarshal loads an `ole.IDispatch` into a struct pointer.
//
// N.B. Unmarshal supports only a limited subset of field types:
//   - all signed and unsigned integers
//   - uintptr
//   - time.Time (from CIM_DATETIME strings)
//   - string
//   - bool
//   - float32
//   - a pointer to one of the types above
//   - a slice of one of these types
//   - structure types (for embedded objects)
//
// To unmarshal a more complex struct consider implementing `wmi.Unmarshaler`;
// for such types Unmarshal just calls `.UnmarshalOLE` on the @src object.
//
// For each public struct field Unmarshal fetches the COM property named
// either by the field name or the `wmi` field tag:
//
//	// Filled from property `Frequency_Object`.
//	FrequencyObject int `wmi:"Frequency_Object"`
//
//	// Skipped during unmarshalling.
//	MyHelperField int `wmi:"-"`
//
//	// Resolved by CIM reference. See `Dereferencer` for more info.
//	Field  Type `wmi:"FieldName,ref"`
//	Field2 Type `wmi:",ref"`
//
// By default a field missing in the COM object is an error; set
// `.AllowMissingFields` to skip such fields instead. Integer widths and
// signedness adapt automatically, so e.g. a uint32 property fits an `int`
// field.
func (d Decoder) Unmarshal(src *ole.IDispatch, dst interface{}) (err error) {
	defer func() {
		// We use lots of reflection, so always be alert!
		if r := recover(); r != nil {
			err = errors.Errorf("runtime panic: %v", r)
		}
	}()

	// Checks whether the type can handle unmarshalling of itself.
	if u, ok := dst.(Unmarshaler); ok {
		return u.UnmarshalOLE(d, src)
	}

	v := reflect.ValueOf(dst).Elem()
	vType := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		fType := vType.Field(i)
		if err = d.unmarshalField(src, f, fType); err != nil {
			return ErrFieldMismatch{
				FieldType: fType.Type,
				FieldName: fType.Name,
				Reason:    err.Error(),
			}
		}
	}

	return nil
}

func (d Decoder) unmarshalField(src *ole.IDispatch, f reflect.Value, fType reflect.StructField) (err error) {
	fieldName, options := getFieldName(fType)
	if !f.CanSet() || fieldName == "-" {
		return nil
	}

	clearVariant := func(p *ole.VARIANT) {
		if clErr := p.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}

	// Fetch the property from the COM object.
	prop, err := oleutil.GetProperty(src, fieldName)
	if err != nil {
		if d.AllowMissingFields {
			return nil
		}
		return errors.Errorf("no result field %q", fieldName)
	}
	defer clearVariant(prop)

	if prop.VT == ole.VT_NULL {
		return nil
	}

	// A reference field carries the object path; resolve it first.
	if options == "ref" {
		if d.Dereferencer == nil {
			return errors.New("failed to dereference ref field; no Decoder.Dereferencer set")
		}
		refPath := prop.ToString()
		prop, err = d.Dereferencer.Dereference(refPath)
		if err != nil {
			return err
		}
		defer clearVariant(prop)
	}

	return d.unmarshalValue(f, prop)
}

func (d Decoder) unmarshalValue(dst reflect.Value, prop *ole.VARIANT) error {
	isPtr := dst.Kind() == reflect.Ptr
	fieldDstOrig := dst
	if isPtr { // Create an empty object for the pointer receiver.
		ptr := reflect.New(dst.Type().Elem())
		dst.Set(ptr)
		dst = dst.Elem()
	}

	// First of all try to unmarshal it as a simple type.
	err := unmarshalSimpleValue(dst, prop.Value())
	if err != errSimpleVariantsExceeded {
		return err // Either nil and value set or unexpected error.
	}

	// Or we faced a not so simple type. Do our best.
	switch dst.Kind() {
	case reflect.Slice:
		safeArray := prop.ToArray()
		if safeArray == nil {
			return errors.Errorf("can't unmarshal %s into slice", prop.VT)
		}
		return unmarshalSlice(dst, safeArray)
	case reflect.Struct:
		dispatch := prop.ToIDispatch()
		if dispatch == nil {
			return errors.Errorf("can't unmarshal %s into struct", prop.VT)
		}
		fieldPointer := dst.Addr().Interface()
		return d.Unmarshal(dispatch, fieldPointer)
	default:
		// If we got a nil value - handle it with the magic config fields.
		gotNilProp := reflect.TypeOf(prop.Value()) == nil
		if gotNilProp && (isPtr || d.NonePtrZero) {
			ptrNeedZero := isPtr && d.PtrNil
			nonPtrAllowNil := !isPtr && d.NonePtrZero
			if ptrNeedZero || nonPtrAllowNil {
				fieldDstOrig.Set(reflect.Zero(fieldDstOrig.Type()))
			}
			return nil
		}
		return errors.Errorf("unsupported type (%T)", prop.Value())
	}
}

var errSimpleVariantsExceeded = errors.New("unknown simple type")

// unmarshalSimpleValue fits a property value returned from the COM object
// into the given structure field, adapting between the integer types
// (including unsigned ones) and parsing stringly-typed numbers and CIM
// datetimes.
//
// Handles all VARIANT types except VT_UNKNOWN and VT_DISPATCH.
func unmarshalSimpleValue(dst reflect.Value, value interface{}) error {
	switch val := value.(type) {
	case int8, int16, int32, int64, int:
		v := reflect.ValueOf(val).Int()
		switch dst.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetInt(v)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			dst.SetUint(uint64(v))
		default:
			return errors.New("not an integer class")
		}
	case uint8, uint16, uint32, uint64:
		v := reflect.ValueOf(val).Uint()
		switch dst.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetInt(int64(v))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			dst.SetUint(v)
		default:
			return errors.New("not an integer class")
		}
	case bool:
		switch dst.Kind() {
		case reflect.Bool:
			dst.SetBool(val)
		default:
			return errors.New("not a bool")
		}
	case float32:
		switch dst.Kind() {
		case reflect.Float32:
			dst.SetFloat(float64(val))
		default:
			return errors.New("not a float32")
		}
	case float64:
		switch dst.Kind() {
		case reflect.Float32, reflect.Float64:
			dst.SetFloat(val)
		default:
			return errors.New("not a float64")
		}
	case time.Time:
		switch dst.Type() {
		case timeType:
			dst.Set(reflect.ValueOf(val))
		default:
			return errors.New("not a time")
		}
	case uintptr:
		switch dst.Kind() {
		case reflect.Uintptr:
			dst.Set(reflect.ValueOf(val))
		default:
			return errors.New("not an uintptr")
		}
	case string:
		return smartUnmarshalString(dst, val)
	default:
		return errSimpleVariantsExceeded
	}
	return nil
}

func unmarshalSlice(fieldDst reflect.Value, safeArray *ole.SafeArrayConversion) error {
	arr := safeArray.ToValueArray()
	resultArr := reflect.MakeSlice(fieldDst.Type(), len(arr), len(arr))
	for i, v := range arr {
		s := resultArr.Index(i)
		err := unmarshalSimpleValue(s, v)
		if err != nil {
			return errors.Errorf("can't put %T into []%s", v, fieldDst.Type().Elem().Kind())
		}
	}
	fieldDst.Set(resultArr)
	return nil
}

func smartUnmarshalString(fieldDst reflect.Value, val string) error {
	switch fieldDst.Kind() {
	case reflect.String:
		fieldDst.SetString(val)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		iv, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return err
		}
		fieldDst.SetInt(iv)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		uv, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return err
		}
		fieldDst.SetUint(uv)
	case reflect.Float32, reflect.Float64:
		fv, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		fieldDst.SetFloat(fv)
	case reflect.Struct:
		switch t := fieldDst.Type(); t {
		case timeType:
			t, err := ParseCIMDatetime(val)
			if err != nil {
				return err
			}
			fieldDst.Set(reflect.ValueOf(t))
		default:
			return errors.Errorf("can't deserialize string into struct %T", fieldDst.Interface())
		}
	default:
		return errors.Errorf("can't deserialize string into %s", fieldDst.Kind())
	}
	return nil
}
