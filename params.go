package wmi

import (
	"reflect"
	"time"

	"github.com/pkg/errors"
)

// structToParams flattens a struct (or a *struct) into named method
// parameters. Field names resolve the same way the decoder resolves them:
// the `wmi` tag wins over the field name, `wmi:"-"` skips the field. Nil
// pointers are skipped; non-nil pointers pass their pointee.
func structToParams(in interface{}) (map[string]interface{}, error) {
	if in == nil {
		return nil, nil
	}

	v := reflect.Indirect(reflect.ValueOf(in))
	if v.Kind() != reflect.Struct {
		return nil, errors.Errorf("wmi: method input should be a struct, got %s", v.Kind())
	}

	params := make(map[string]interface{}, v.NumField())
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fType := t.Field(i)
		if fType.PkgPath != "" {
			continue // unexported
		}
		name, _ := getFieldName(fType)
		if name == "-" {
			continue
		}

		f := v.Field(i)
		if f.Kind() == reflect.Ptr {
			if f.IsNil() {
				continue
			}
			f = f.Elem()
		}
		params[name] = f.Interface()
	}
	return params, nil
}

// decodeParams fills a struct from a map of variants, e.g. the out
// parameters of a method call. @dst must be a pointer to a struct; missing
// properties and Null values leave the zero value in place.
func decodeParams(params map[string]Variant, dst interface{}) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return errors.New("wmi: decode destination should be a pointer to struct")
	}
	v = v.Elem()

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fType := t.Field(i)
		name, _ := getFieldName(fType)
		if name == "-" {
			continue
		}
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}

		value, ok := params[name]
		if !ok || value.IsNil() {
			continue
		}
		if err := setFieldFromVariant(f, value); err != nil {
			return ErrFieldMismatch{
				FieldType: fType.Type,
				FieldName: fType.Name,
				Reason:    err.Error(),
			}
		}
	}
	return nil
}

func setFieldFromVariant(f reflect.Value, value Variant) error {
	if f.Kind() == reflect.Ptr {
		f.Set(reflect.New(f.Type().Elem()))
		f = f.Elem()
	}

	switch f.Kind() {
	case reflect.Bool:
		b, ok := value.Bool()
		if !ok {
			return errors.Errorf("not a bool: %s", value.Kind())
		}
		f.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, ok := value.Int(); ok {
			f.SetInt(i)
		} else if u, ok := value.Uint(); ok {
			f.SetInt(int64(u))
		} else {
			return errors.Errorf("not an integer: %s", value.Kind())
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u, ok := value.Uint(); ok {
			f.SetUint(u)
		} else if i, ok := value.Int(); ok {
			f.SetUint(uint64(i))
		} else {
			return errors.Errorf("not an integer: %s", value.Kind())
		}

	case reflect.Float32, reflect.Float64:
		fl, ok := value.Float()
		if !ok {
			return errors.Errorf("not a float: %s", value.Kind())
		}
		f.SetFloat(fl)

	case reflect.String:
		s, ok := value.Str()
		if !ok {
			return errors.Errorf("not a string: %s", value.Kind())
		}
		f.SetString(s)

	case reflect.Slice:
		arr, ok := value.Array()
		if !ok {
			return errors.Errorf("not an array: %s", value.Kind())
		}
		out := reflect.MakeSlice(f.Type(), len(arr), len(arr))
		for i, el := range arr {
			if err := setFieldFromVariant(out.Index(i), el); err != nil {
				return err
			}
		}
		f.Set(out)

	case reflect.Struct:
		if f.Type() == timeVariantType {
			s, ok := value.Str()
			if !ok {
				return errors.Errorf("not a CIM datetime: %s", value.Kind())
			}
			t, err := ParseCIMDatetime(s)
			if err != nil {
				return err
			}
			f.Set(reflect.ValueOf(t))
			return nil
		}
		return errors.Errorf("unsupported struct type %s", f.Type())

	default:
		return errors.Errorf("unsupported field kind %s", f.Kind())
	}
	return nil
}

// timeVariantType is declared here (and not shared with the decoder) so this
// file stays portable.
var timeVariantType = reflect.TypeOf(time.Time{})
