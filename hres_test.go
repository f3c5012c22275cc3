package wmi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHResultError(t *testing.T) {
	err := &HResultError{HResult: WbemErrInvalidQuery}
	assert.Contains(t, err.Error(), "WBEM_E_INVALID_QUERY")

	// Codes outside the table still render, just without a name.
	err = &HResultError{HResult: 0xdeadbeef}
	assert.Equal(t, "wmi: HRESULT 0xDEADBEEF", err.Error())
}

func TestWbemErrorMessage(t *testing.T) {
	assert.Contains(t, WbemErrorMessage(WbemErrTimedOut), "WBEM_S_TIMEDOUT")
	assert.Contains(t, WbemErrorMessage(WbemErrAccessDenied), "WBEM_E_ACCESS_DENIED")
}
