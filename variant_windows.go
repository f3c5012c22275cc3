//go:build windows
// +build windows

package wmi

import (
	"encoding/json"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Object wraps a live SWbemObject dispatch, e.g. an embedded CIM_OBJECT
// property value. It holds its own COM reference; Release it when done.
type Object struct {
	dispatch *ole.IDispatch
}

// newObject wraps @dispatch and takes an additional reference on it.
func newObject(dispatch *ole.IDispatch) *Object {
	dispatch.AddRef()
	return &Object{dispatch: dispatch}
}

// Release drops the COM reference. The object is unusable afterwards.
func (o *Object) Release() {
	if o.dispatch != nil {
		o.dispatch.Release()
		o.dispatch = nil
	}
}

// Path returns the full WMI object path (`__PATH`), usable with Get calls.
func (o *Object) Path() (string, error) {
	return o.stringProperty("Path_", "Path")
}

// Class returns the WMI class name of the object.
func (o *Object) Class() (string, error) {
	return o.stringProperty("Path_", "Class")
}

func (o *Object) stringProperty(obj, prop string) (s string, err error) {
	if o.dispatch == nil {
		return "", ErrConnectionClosed
	}
	pathRaw, err := oleutil.GetProperty(o.dispatch, obj)
	if err != nil {
		return "", errors.Wrapf(err, "get %s", obj)
	}
	defer func() {
		if clErr := pathRaw.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}()

	propRaw, err := oleutil.GetProperty(pathRaw.ToIDispatch(), prop)
	if err != nil {
		return "", errors.Wrapf(err, "get %s.%s", obj, prop)
	}
	defer func() {
		if clErr := propRaw.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}()

	return propRaw.ToString(), nil
}

// Properties expands the object's property set into a map of variants, each
// coerced to its declared CIM type.
func (o *Object) Properties() (map[string]Variant, error) {
	if o.dispatch == nil {
		return nil, ErrConnectionClosed
	}
	return objectProperties(o.dispatch)
}

// MarshalJSON renders the expanded property map.
func (o *Object) MarshalJSON() ([]byte, error) {
	props, err := o.Properties()
	if err != nil {
		return nil, err
	}
	return json.Marshal(props)
}

// variantFromOLE converts a raw ole.VARIANT into the package's tagged union.
// The returned Variant does not alias the VARIANT memory (embedded objects
// take their own COM reference), so the caller may Clear @v afterwards.
func variantFromOLE(v *ole.VARIANT) (Variant, error) {
	if v.VT&ole.VT_ARRAY != 0 {
		safeArray := v.ToArray()
		if safeArray == nil {
			return Variant{}, errors.Errorf("wmi: variant type %#x carries no array", int(v.VT))
		}
		values := safeArray.ToValueArray()
		elems := make([]Variant, len(values))
		for i, value := range values {
			el, err := variantFromValue(value)
			if err != nil {
				return Variant{}, err
			}
			elems[i] = el
		}
		return VarArray(elems), nil
	}

	switch v.VT {
	case ole.VT_EMPTY:
		return VarEmpty(), nil
	case ole.VT_NULL:
		return VarNull(), nil
	case ole.VT_DISPATCH:
		dispatch := v.ToIDispatch()
		if dispatch == nil {
			return Variant{}, errors.New("wmi: VT_DISPATCH variant with nil dispatch")
		}
		return VarObject(newObject(dispatch)), nil
	case ole.VT_UNKNOWN:
		unknown := v.ToIUnknown()
		if unknown == nil {
			return Variant{}, errors.New("wmi: VT_UNKNOWN variant with nil interface")
		}
		dispatch, err := unknown.QueryInterface(ole.IID_IDispatch)
		if err != nil {
			return Variant{}, errors.Wrap(err, "wmi: VT_UNKNOWN QueryInterface")
		}
		obj := newObject(dispatch)
		dispatch.Release() // newObject took its own reference
		return VarObject(obj), nil
	}

	return variantFromValue(v.Value())
}

// variantFromValue maps the native Go values go-ole produces (scalars and
// safe-array elements) onto variant kinds.
func variantFromValue(value interface{}) (Variant, error) {
	switch val := value.(type) {
	case nil:
		return VarNull(), nil
	case bool:
		return VarBool(val), nil
	case int8:
		return VarI1(val), nil
	case int16:
		return VarI2(val), nil
	case int32:
		return VarI4(val), nil
	case int64:
		return VarI8(val), nil
	case int:
		return VarI8(int64(val)), nil
	case uint8:
		return VarUI1(val), nil
	case uint16:
		return VarUI2(val), nil
	case uint32:
		return VarUI4(val), nil
	case uint64:
		return VarUI8(val), nil
	case uint:
		return VarUI8(uint64(val)), nil
	case float32:
		return VarR4(val), nil
	case float64:
		return VarR8(val), nil
	case string:
		return VarString(val), nil
	case time.Time:
		// VT_DATE; WMI itself transports datetimes as CIM strings, so
		// normalize to that representation.
		return VarString(FormatCIMDatetime(val)), nil
	case *ole.IDispatch:
		return VarObject(newObject(val)), nil
	}
	return Variant{}, errors.Errorf("wmi: unsupported variant value type %T", value)
}

// objectProperties walks an SWbemObject's Properties_ collection and converts
// every property into a CIM-typed Variant.
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/swbemobject-properties-
func objectProperties(item *ole.IDispatch) (m map[string]Variant, err error) {
	//  Be aware of reflections and COM usage.
	defer func() {
		if r := recover(); r != nil {
			err = multierror.Append(err, errors.Errorf("runtime panic; %v", r))
		}
	}()

	propsRaw, err := oleutil.GetProperty(item, "Properties_")
	if err != nil {
		return nil, errors.Wrap(err, "get Properties_")
	}
	props := propsRaw.ToIDispatch()
	defer func() {
		if clErr := propsRaw.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}()

	enumProperty, err := props.GetProperty("_NewEnum")
	if err != nil {
		return nil, errors.Wrap(err, "get Properties_._NewEnum")
	}
	defer func() {
		if clErr := enumProperty.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}()

	enum, err := enumProperty.ToIUnknown().IEnumVARIANT(ole.IID_IEnumVariant)
	if err != nil {
		return nil, err
	}
	if enum == nil {
		return nil, errors.New("wmi: can't get IEnumVARIANT for Properties_")
	}
	defer enum.Release()

	m = make(map[string]Variant)
	for propRaw, length, err := enum.Next(1); length > 0; propRaw, length, err = enum.Next(1) {
		if err != nil {
			return nil, err
		}

		err := func() (err error) {
			prop := propRaw.ToIDispatch()
			defer prop.Release()

			clearVariant := func(p *ole.VARIANT) {
				if clErr := p.Clear(); clErr != nil {
					err = multierror.Append(err, clErr)
				}
			}

			nameRaw, err := oleutil.GetProperty(prop, "Name")
			if err != nil {
				return errors.Wrap(err, "get property Name")
			}
			defer clearVariant(nameRaw)
			name := nameRaw.ToString()

			valueRaw, err := oleutil.GetProperty(prop, "Value")
			if err != nil {
				return errors.Wrapf(err, "get value of %q", name)
			}
			defer clearVariant(valueRaw)

			cimTypeRaw, err := oleutil.GetProperty(prop, "CIMType")
			if err != nil {
				return errors.Wrapf(err, "get CIMType of %q", name)
			}
			defer clearVariant(cimTypeRaw)

			value, err := variantFromOLE(valueRaw)
			if err != nil {
				return errors.Wrapf(err, "convert %q", name)
			}

			isArrayRaw, err := oleutil.GetProperty(prop, "IsArray")
			if err != nil {
				return errors.Wrapf(err, "get IsArray of %q", name)
			}
			defer clearVariant(isArrayRaw)

			cimType := CIMType(cimTypeRaw.Val)
			if isArray, ok := isArrayRaw.Value().(bool); ok && isArray {
				cimType |= CIMFlagArray
			}

			coerced, err := value.CoerceToCIMType(cimType)
			if err != nil {
				return errors.Wrapf(err, "coerce %q", name)
			}

			m[name] = coerced
			return nil
		}()
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}
