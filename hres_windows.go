//go:build windows
// +build windows

package wmi

import (
	"github.com/go-ole/go-ole"
	"github.com/pkg/errors"
)

// wbemError extracts the WBEM failure code out of a go-ole error. COM
// surfaces scripting failures either directly in the HRESULT or through a
// wrapped EXCEPINFO; whichever carries a WBEM facility code becomes an
// HResultError so callers can match on the documented constants. Other
// errors pass through untouched.
func wbemError(err error) error {
	if err == nil {
		return nil
	}
	oleErr, ok := err.(*ole.OleError)
	if !ok {
		return err
	}

	code := uint32(oleErr.Code())
	if sub, ok := oleErr.SubError().(ole.EXCEPINFO); ok {
		if sc := uint32(sub.SCODE()); sc != 0 {
			code = sc
		}
	}
	if _, known := wbemErrText[code]; known {
		return &HResultError{HResult: code}
	}
	return err
}

// notFoundAsEmpty maps the WBEM not-found code onto ErrResultEmpty so a
// missing object can be tested for without peeking at HRESULTs.
func notFoundAsEmpty(err error) error {
	var hres *HResultError
	if errors.As(err, &hres) && hres.HResult == WbemErrNotFound {
		return ErrResultEmpty
	}
	return err
}
