//go:build windows
// +build windows

package wmi

import (
	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ExecMethod executes a WMI method and returns the expanded out-parameters
// object (including `ReturnValue`), or nil for a void method with no out
// parameters.
//
// @objectPath is either a class name for class ("static") methods, e.g.
// `Win32_Process` for its `Create`, or a full instance path (the `__PATH`
// property) for instance methods. @in holds the named input parameters;
// Variant values are unwrapped, everything else is converted by go-ole.
//
//	out, err := conn.ExecMethod("Win32_Process", "Create", map[string]interface{}{
//		"CommandLine": "notepad.exe",
//	})
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/swbemservices-execmethod
func (s *SWbemServicesConnection) ExecMethod(objectPath, method string, in map[string]interface{}) (out map[string]Variant, err error) {
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

	clearVariant := func(p *ole.VARIANT) {
		if clErr := p.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}

	var inParams *ole.IDispatch
	if len(in) > 0 {
		inParamsRaw, spawnErr := spawnInParameters(services, objectPath, method)
		if spawnErr != nil {
			return nil, spawnErr
		}
		defer clearVariant(inParamsRaw)
		inParams = inParamsRaw.ToIDispatch()

		for name, value := range in {
			if v, ok := value.(Variant); ok {
				value = v.Value()
			}
			if _, putErr := oleutil.PutProperty(inParams, name, value); putErr != nil {
				return nil, errors.Wrapf(putErr, "put method parameter %q", name)
			}
		}
	}

	// The scripting signature is (strObjectPath, strMethodName,
	// objWbemInParameters, iFlags, objWbemNamedValueSet); the in-parameters
	// object goes third, before any flags.
	var outRaw *ole.VARIANT
	if inParams != nil {
		outRaw, err = oleutil.CallMethod(services, "ExecMethod", objectPath, method, inParams)
	} else {
		outRaw, err = oleutil.CallMethod(services, "ExecMethod", objectPath, method)
	}
	if err != nil {
		return nil, errors.Wrapf(wbemError(err), "ExecMethod %s.%s", objectPath, method)
	}
	defer clearVariant(outRaw)

	outObj := outRaw.ToIDispatch()
	if outObj == nil {
		// Void return type and no out parameters.
		return nil, nil
	}
	return objectProperties(outObj)
}

// spawnInParameters fetches the method's InParameters class definition and
// spawns a fresh instance of it to carry the call arguments.
func spawnInParameters(services *ole.IDispatch, objectPath, method string) (inst *ole.VARIANT, err error) {
	clearVariant := func(p *ole.VARIANT) {
		if clErr := p.Clear(); clErr != nil {
			err = multierror.Append(err, clErr)
		}
	}

	classRaw, err := oleutil.CallMethod(services, "Get", objectPath)
	if err != nil {
		return nil, errors.Wrapf(wbemError(err), "get class %q", objectPath)
	}
	defer clearVariant(classRaw)

	methodsRaw, err := oleutil.GetProperty(classRaw.ToIDispatch(), "Methods_")
	if err != nil {
		return nil, errors.Wrap(err, "get Methods_")
	}
	defer clearVariant(methodsRaw)

	methodRaw, err := oleutil.CallMethod(methodsRaw.ToIDispatch(), "Item", method)
	if err != nil {
		return nil, errors.Wrapf(err, "method %q not found on %q", method, objectPath)
	}
	defer clearVariant(methodRaw)

	inParamsRaw, err := oleutil.GetProperty(methodRaw.ToIDispatch(), "InParameters")
	if err != nil {
		return nil, errors.Wrapf(err, "get InParameters of %q", method)
	}
	defer clearVariant(inParamsRaw)

	inParamsClass := inParamsRaw.ToIDispatch()
	if inParamsClass == nil {
		return nil, errors.Errorf("wmi: method %q takes no input parameters", method)
	}

	return oleutil.CallMethod(inParamsClass, "SpawnInstance_")
}

// ExecClassMethod builds the input parameter map from an input struct (using
// `wmi` field tags like the decoder does) and decodes the out-parameters
// object into @outDst, a pointer to a struct. Pass nil @outDst to discard
// the output.
func (s *SWbemServicesConnection) ExecClassMethod(class, method string, in interface{}, outDst interface{}) error {
	params, err := structToParams(in)
	if err != nil {
		return err
	}

	out, err := s.ExecMethod(class, method, params)
	if err != nil {
		return err
	}
	if outDst == nil || out == nil {
		return nil
	}
	return decodeParams(out, outDst)
}
