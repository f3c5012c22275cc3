package wmi

import "fmt"

// WBEM error codes. COM/WMI calls fail with these HRESULT values; the table
// below covers the codes a query client is likely to hit. See wbemcli.h for
// the complete list.
const (
	WbemErrFailed                  = 0x80041001
	WbemErrNotFound                = 0x80041002
	WbemErrAccessDenied            = 0x80041003
	WbemErrProviderFailure         = 0x80041004
	WbemErrTypeMismatch            = 0x80041005
	WbemErrOutOfMemory             = 0x80041006
	WbemErrInvalidContext          = 0x80041007
	WbemErrInvalidParameter        = 0x80041008
	WbemErrNotAvailable            = 0x80041009
	WbemErrCriticalError           = 0x8004100A
	WbemErrNotSupported            = 0x8004100C
	WbemErrInvalidNamespace        = 0x8004100E
	WbemErrInvalidObject           = 0x8004100F
	WbemErrInvalidClass            = 0x80041010
	WbemErrProviderNotFound        = 0x80041011
	WbemErrProviderLoadFailure     = 0x80041013
	WbemErrInitializationFailure   = 0x80041014
	WbemErrTransportFailure        = 0x80041015
	WbemErrInvalidOperation        = 0x80041016
	WbemErrInvalidQuery            = 0x80041017
	WbemErrInvalidQueryType        = 0x80041018
	WbemErrAlreadyExists           = 0x80041019
	WbemErrUnexpected              = 0x8004101D
	WbemErrInvalidSyntax           = 0x80041021
	WbemErrProviderNotCapable      = 0x80041024
	WbemErrQueryNotImplemented     = 0x80041027
	WbemErrIllegalNull             = 0x80041028
	WbemErrValueOutOfRange         = 0x8004102B
	WbemErrInvalidCIMType          = 0x8004102D
	WbemErrInvalidMethod           = 0x8004102E
	WbemErrInvalidMethodParameters = 0x8004102F
	WbemErrSystemProperty          = 0x80041030
	WbemErrInvalidProperty         = 0x80041031
	WbemErrCallCancelled           = 0x80041032
	WbemErrShuttingDown            = 0x80041033
	WbemErrInvalidObjectPath       = 0x8004103A
	WbemErrOutOfDiskSpace          = 0x8004103B
	WbemErrServerTooBusy           = 0x80041045
	WbemErrTooManyProperties       = 0x80041051
	WbemErrMethodNotImplemented    = 0x80041055
	WbemErrRefresherBusy           = 0x80041057
	WbemErrUnparsableQuery         = 0x80041058
	WbemErrNotEventClass           = 0x80041059
	WbemErrMissingGroupWithin      = 0x8004105A
	WbemErrQuotaViolation          = 0x8004106C
	WbemErrTimedOut                = 0x80043001
	WbemErrResetToDefault          = 0x80043002
)

var wbemErrText = map[uint32]string{
	WbemErrFailed:                  "WBEM_E_FAILED: call failed",
	WbemErrNotFound:                "WBEM_E_NOT_FOUND: object could not be found",
	WbemErrAccessDenied:            "WBEM_E_ACCESS_DENIED: current user does not have permission to perform the action",
	WbemErrProviderFailure:         "WBEM_E_PROVIDER_FAILURE: provider has failed at some time other than during initialization",
	WbemErrTypeMismatch:            "WBEM_E_TYPE_MISMATCH: type mismatch occurred",
	WbemErrOutOfMemory:             "WBEM_E_OUT_OF_MEMORY: not enough memory for the operation",
	WbemErrInvalidContext:          "WBEM_E_INVALID_CONTEXT: context parameter is not valid",
	WbemErrInvalidParameter:        "WBEM_E_INVALID_PARAMETER: one of the parameters to the call is not correct",
	WbemErrNotAvailable:            "WBEM_E_NOT_AVAILABLE: resource, typically a remote server, is not currently available",
	WbemErrCriticalError:           "WBEM_E_CRITICAL_ERROR: internal, critical, and unexpected error occurred",
	WbemErrNotSupported:            "WBEM_E_NOT_SUPPORTED: feature or operation is not supported",
	WbemErrInvalidNamespace:        "WBEM_E_INVALID_NAMESPACE: namespace specified cannot be found",
	WbemErrInvalidObject:           "WBEM_E_INVALID_OBJECT: specified instance is not valid",
	WbemErrInvalidClass:            "WBEM_E_INVALID_CLASS: specified class is not valid",
	WbemErrProviderNotFound:        "WBEM_E_PROVIDER_NOT_FOUND: provider referenced in the schema does not have a corresponding registration",
	WbemErrProviderLoadFailure:     "WBEM_E_PROVIDER_LOAD_FAILURE: COM cannot locate a provider referenced in the schema",
	WbemErrInitializationFailure:   "WBEM_E_INITIALIZATION_FAILURE: component, such as a provider, failed to initialize for internal reasons",
	WbemErrTransportFailure:        "WBEM_E_TRANSPORT_FAILURE: networking error that prevents normal operation has occurred",
	WbemErrInvalidOperation:        "WBEM_E_INVALID_OPERATION: requested operation is not valid",
	WbemErrInvalidQuery:            "WBEM_E_INVALID_QUERY: query was not syntactically valid",
	WbemErrInvalidQueryType:        "WBEM_E_INVALID_QUERY_TYPE: requested query language is not supported",
	WbemErrAlreadyExists:           "WBEM_E_ALREADY_EXISTS: object already exists",
	WbemErrUnexpected:              "WBEM_E_UNEXPECTED: object was deleted or the current user lost access",
	WbemErrInvalidSyntax:           "WBEM_E_INVALID_SYNTAX: query is syntactically not valid",
	WbemErrProviderNotCapable:      "WBEM_E_PROVIDER_NOT_CAPABLE: provider cannot perform the requested operation",
	WbemErrQueryNotImplemented:     "WBEM_E_QUERY_NOT_IMPLEMENTED: query was not implemented",
	WbemErrIllegalNull:             "WBEM_E_ILLEGAL_NULL: value of Nothing/NULL was specified for a property that must have a value",
	WbemErrValueOutOfRange:         "WBEM_E_VALUE_OUT_OF_RANGE: request was made with an out-of-range value or is incompatible with the type",
	WbemErrInvalidCIMType:          "WBEM_E_INVALID_CIM_TYPE: CIM type specified is not valid",
	WbemErrInvalidMethod:           "WBEM_E_INVALID_METHOD: requested method is not available",
	WbemErrInvalidMethodParameters: "WBEM_E_INVALID_METHOD_PARAMETERS: parameters provided for the method are not valid",
	WbemErrSystemProperty:          "WBEM_E_SYSTEM_PROPERTY: there was an attempt to get qualifiers on a system property",
	WbemErrInvalidProperty:         "WBEM_E_INVALID_PROPERTY: property type is not recognized",
	WbemErrCallCancelled:           "WBEM_E_CALL_CANCELLED: asynchronous process has been canceled internally or by the user",
	WbemErrShuttingDown:            "WBEM_E_SHUTTING_DOWN: user has requested an operation while WMI is being shut down",
	WbemErrInvalidObjectPath:       "WBEM_E_INVALID_OBJECT_PATH: object path is not valid",
	WbemErrOutOfDiskSpace:          "WBEM_E_OUT_OF_DISK_SPACE: disk is out of space or the 4 GB limit on WMI repository size is reached",
	WbemErrServerTooBusy:           "WBEM_E_SERVER_TOO_BUSY: DCOM call failed because the server is too busy",
	WbemErrTooManyProperties:       "WBEM_E_TOO_MANY_PROPERTIES: attempt to create more properties than the current version of the class supports",
	WbemErrMethodNotImplemented:    "WBEM_E_METHOD_NOT_IMPLEMENTED: attempt to execute a method not marked with [implemented] in any relevant class",
	WbemErrRefresherBusy:           "WBEM_E_REFRESHER_BUSY: refresher is busy with another operation",
	WbemErrUnparsableQuery:         "WBEM_E_UNPARSABLE_QUERY: filtering query is syntactically not valid",
	WbemErrNotEventClass:           "WBEM_E_NOT_EVENT_CLASS: FROM clause of a filtering query references a class that is not an event class",
	WbemErrMissingGroupWithin:      "WBEM_E_MISSING_GROUP_WITHIN: GROUP BY clause was used without the corresponding GROUP WITHIN clause",
	WbemErrQuotaViolation:          "WBEM_E_QUOTA_VIOLATION: quota violation",
	WbemErrTimedOut:                "WBEM_S_TIMEDOUT: operation timed out (no event arrived within the requested interval)",
	WbemErrResetToDefault:          "WBEM_S_RESET_TO_DEFAULT: existing value was overridden by a default",
}

// HResultError is a raw WBEM/COM failure code carried through unchanged from
// the native call.
type HResultError struct {
	HResult uint32
}

func (e *HResultError) Error() string {
	if text, ok := wbemErrText[e.HResult]; ok {
		return "wmi: " + text
	}
	return fmt.Sprintf("wmi: HRESULT 0x%08X", e.HResult)
}

// WbemErrorMessage returns the descriptive text for a WBEM error code, or a
// hex rendering for codes outside the table.
func WbemErrorMessage(hres uint32) string {
	return (&HResultError{HResult: hres}).Error()
}
