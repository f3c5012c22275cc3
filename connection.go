//go:build windows
// +build windows

package wmi

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/scjalliance/comshim"
)

// Impersonation levels for SWbemSecurity.
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/swbemsecurity
type ImpersonationLevel int

const (
	ImpersonationAnonymous   ImpersonationLevel = 1
	ImpersonationIdentify    ImpersonationLevel = 2
	ImpersonationImpersonate ImpersonationLevel = 3
	ImpersonationDelegate    ImpersonationLevel = 4
)

// Authentication levels for SWbemSecurity. These mirror the DCOM
// RPC_C_AUTHN_LEVEL_* constants.
type AuthenticationLevel int

const (
	AuthenticationDefault      AuthenticationLevel = 0
	AuthenticationNone         AuthenticationLevel = 1
	AuthenticationConnect      AuthenticationLevel = 2
	AuthenticationCall         AuthenticationLevel = 3
	AuthenticationPkt          AuthenticationLevel = 4
	AuthenticationPktIntegrity AuthenticationLevel = 5
	AuthenticationPktPrivacy   AuthenticationLevel = 6
)

// SWbemServicesConnection is a connection to a single server and namespace.
// It is safe for concurrent use; the underlying apartment is multithreaded.
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/swbemservices
type SWbemServicesConnection struct {
	sync.Mutex
	Decoder

	sWbemServices *ole.IDispatch
}

// Close releases the service proxy. Further calls return
// ErrConnectionClosed; closing twice is a no-op.
func (s *SWbemServicesConnection) Close() error {
	s.Lock()
	defer s.Unlock()
	if s.sWbemServices == nil {
		return nil // Already stopped.
	}
	s.sWbemServices.Release()
	s.sWbemServices = nil
	comshim.Done()
	return nil
}

func (s *SWbemServicesConnection) services() (*ole.IDispatch, error) {
	s.Lock()
	defer s.Unlock()
	if s.sWbemServices == nil {
		return nil, ErrConnectionClosed
	}
	return s.sWbemServices, nil
}

// SetAuthentication adjusts the security blanket of the service proxy
// through its Security_ object. Remote connections usually want
// AuthenticationPktPrivacy.
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/swbemsecurity
func (s *SWbemServicesConnection) SetAuthentication(impersonation ImpersonationLevel, authentication AuthenticationLevel) (err error) {
	services, err := s.services()
	if err != nil {
		return err
	}

	//  Be aware of reflections and COM usage.
	defer func() {
		if r := recover(); r != nil {
			err = multierror.Append(err, errors.Errorf("runtime panic; %v", r))
		}
	}()

	securityRaw, err := oleutil.GetProperty(services, "Security_")
	if err != nil {
		return errors.Wrap(err, "get Security_")
	}
	security := securityRaw.ToIDispatch()
	defer func() {
		if clErr := securityRaw.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}()

	if _, err := oleutil.PutProperty(security, "ImpersonationLevel", int(impersonation)); err != nil {
		return errors.Wrap(err, "put ImpersonationLevel")
	}
	if _, err := oleutil.PutProperty(security, "AuthenticationLevel", int(authentication)); err != nil {
		return errors.Wrap(err, "put AuthenticationLevel")
	}
	return nil
}

// Query runs the WQL query and appends the values to dst.
//
// dst must be a pointer to a []T or []*T where T is a struct; see
// `Decoder.Unmarshal` for the decoding rules.
//
// Query is performed using `SWbemServices.ExecQuery`.
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/swbemservices-execquery
func (s *SWbemServicesConnection) Query(query string, dst interface{}) error {
	services, err := s.services()
	if err != nil {
		return err
	}

	sliceRefl := reflect.ValueOf(dst)
	if sliceRefl.Kind() != reflect.Ptr || sliceRefl.IsNil() {
		return ErrInvalidEntityType
	}
	sliceRefl = sliceRefl.Elem() // "Dereference" pointer.

	argType, elemType := checkMultiArg(sliceRefl)
	if argType == multiArgTypeInvalid {
		return ErrInvalidEntityType
	}

	return s.execQuery(services, "ExecQuery", query, &queryDst{
		dst:         sliceRefl,
		dstArgType:  argType,
		dstElemType: elemType,
	})
}

// RawQuery runs the WQL query and returns each result row as a free-form map
// of CIM-typed variants. Use it when the result shape is not known at
// compile time.
func (s *SWbemServicesConnection) RawQuery(query string) (rows []map[string]Variant, err error) {
	services, err := s.services()
	if err != nil {
		return nil, err
	}

	err = s.forEachResult(services, "ExecQuery", query, func(item *ole.IDispatch) error {
		row, rowErr := objectProperties(item)
		if rowErr != nil {
			return rowErr
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Get retrieves a single instance of a managed resource (or class
// definition) based on an object @path and decodes it into @dst, which must
// be a pointer to a struct. A path matching nothing returns ErrResultEmpty.
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/swbemservices-get
func (s *SWbemServicesConnection) Get(path string, dst interface{}) (err error) {
	//  Be aware of reflections and COM usage.
	defer func() {
		if r := recover(); r != nil {
			err = multierror.Append(err, errors.Errorf("runtime panic; %v", r))
		}
	}()

	dstRef := reflect.ValueOf(dst)
	if dstRef.Kind() != reflect.Ptr || dstRef.Elem().Kind() != reflect.Struct {
		return errors.New("wmi: Get dst should be a pointer to struct")
	}

	resultRaw, err := s.Dereference(path)
	if err != nil {
		return notFoundAsEmpty(err)
	}
	defer func() {
		if clErr := resultRaw.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}()

	return s.Unmarshal(resultRaw.ToIDispatch(), dst)
}

// GetObject retrieves a single object by @path and returns it as a live
// wrapper. Useful when the object's type is not known at compile time;
// Release the result when done.
func (s *SWbemServicesConnection) GetObject(path string) (obj *Object, err error) {
	resultRaw, err := s.Dereference(path)
	if err != nil {
		return nil, notFoundAsEmpty(err)
	}
	defer func() {
		if clErr := resultRaw.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}()

	dispatch := resultRaw.ToIDispatch()
	if dispatch == nil {
		return nil, errors.Errorf("wmi: object %q is not a dispatch", path)
	}
	return newObject(dispatch), nil
}

// Dereference performs `SWbemServices.Get` on the given path, returning the
// low level result itself not performing decoding. Used to resolve CIM
// reference strings, e.g. from `Win32_LoggedOnUser`.
func (s *SWbemServicesConnection) Dereference(referencePath string) (v *ole.VARIANT, err error) {
	services, err := s.services()
	if err != nil {
		return nil, err
	}

	//  Be aware of reflections and COM usage.
	defer func() {
		if r := recover(); r != nil {
			err = multierror.Append(err, errors.Errorf("runtime panic; %v", r))
		}
	}()

	v, err = oleutil.CallMethod(services, "Get", referencePath)
	if err != nil {
		return nil, wbemError(err)
	}
	return v, nil
}

// Associators queries the objects associated with the instance at
// @objectPath through the association class @assocClass and appends the
// decoded values to dst. The result class is taken from dst's element type.
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/associators-of-statement
func (s *SWbemServicesConnection) Associators(objectPath, assocClass string, dst interface{}) error {
	sliceRefl := reflect.ValueOf(dst)
	if sliceRefl.Kind() != reflect.Ptr || sliceRefl.IsNil() {
		return ErrInvalidEntityType
	}
	_, elemType := checkMultiArg(sliceRefl.Elem())
	if elemType == nil {
		return ErrInvalidEntityType
	}

	query := fmt.Sprintf("ASSOCIATORS OF {%s} WHERE AssocClass = %s ResultClass = %s",
		objectPath, assocClass, elemType.Name())
	return s.Query(query, dst)
}

type queryDst struct {
	dst         reflect.Value
	dstArgType  multiArgType
	dstElemType reflect.Type
}

// execQuery runs @method ("ExecQuery" or "ExecNotificationQuery"), decoding
// every result object into dst. Field mismatches do not abort the
// enumeration; the last one is reported after the slice is filled.
func (s *SWbemServicesConnection) execQuery(services *ole.IDispatch, method, query string, dst *queryDst) (err error) {
	// Initialize a slice; capacity is unknown in forward-only mode.
	dst.dst.Set(reflect.MakeSlice(dst.dst.Type(), 0, 8))

	var errFieldMismatch error
	err = s.forEachResult(services, method, query, func(item *ole.IDispatch) error {
		ev := reflect.New(dst.dstElemType)
		if err := s.Unmarshal(item, ev.Interface()); err != nil {
			if _, ok := err.(ErrFieldMismatch); ok {
				// We continue loading entities even in the face of field
				// mismatch errors. Every element gets the same mismatch, so
				// saving the last one loses nothing.
				errFieldMismatch = err
			} else {
				return err
			}
		}

		if dst.dstArgType != multiArgTypeStructPtr {
			ev = ev.Elem()
		}
		dst.dst.Set(reflect.Append(dst.dst, ev))
		return nil
	})
	if err != nil {
		return err
	}
	return errFieldMismatch
}

// forEachResult runs @method on the services object and invokes @fn for each
// object of the resulting SWbemObjectSet. Enumeration is forward-only and
// semisynchronous.
func (s *SWbemServicesConnection) forEachResult(services *ole.IDispatch, method, query string, fn func(item *ole.IDispatch) error) (err error) {
	//  Be aware of reflections and COM usage.
	defer func() {
		if r := recover(); r != nil {
			err = multierror.Append(err, errors.Errorf("runtime panic; %v", r))
		}
	}()

	// wbemFlagForwardOnly | wbemFlagReturnImmediately
	const flags = 0x20 | 0x10

	resultRaw, err := oleutil.CallMethod(services, method, query, "WQL", flags)
	if err != nil {
		return wbemError(err)
	}
	result := resultRaw.ToIDispatch()
	defer func() {
		if clErr := resultRaw.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}()

	enumProperty, err := result.GetProperty("_NewEnum")
	if err != nil {
		return err
	}
	defer func() {
		if clErr := enumProperty.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}()

	enum, err := enumProperty.ToIUnknown().IEnumVARIANT(ole.IID_IEnumVariant)
	if err != nil {
		return err
	}
	if enum == nil {
		return errors.New("wmi: can't get IEnumVARIANT, enum is nil")
	}
	defer enum.Release()

	for itemRaw, length, err := enum.Next(1); length > 0; itemRaw, length, err = enum.Next(1) {
		if err != nil {
			return err
		}

		// Closure for defer in the loop.
		err := func() error {
			item := itemRaw.ToIDispatch()
			defer item.Release()
			return fn(item)
		}()
		if err != nil {
			return err
		}
	}
	return nil
}

type multiArgType int

const (
	multiArgTypeInvalid multiArgType = iota
	multiArgTypeStruct
	multiArgTypeStructPtr
)

// checkMultiArg checks that v has type []S, []*S for some struct type S.
//
// It returns what category the slice's elements are, and the reflect.Type
// that represents S.
func checkMultiArg(v reflect.Value) (m multiArgType, elemType reflect.Type) {
	if v.Kind() != reflect.Slice {
		return multiArgTypeInvalid, nil
	}
	elemType = v.Type().Elem()
	switch elemType.Kind() {
	case reflect.Struct:
		return multiArgTypeStruct, elemType
	case reflect.Ptr:
		elemType = elemType.Elem()
		if elemType.Kind() == reflect.Struct {
			return multiArgTypeStructPtr, elemType
		}
	}
	return multiArgTypeInvalid, nil
}
