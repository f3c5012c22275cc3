/*
Package wmi queries Windows Management Instrumentation through the COM
scripting API (SWbemLocator / SWbemServices) and maps the VARIANT-typed
results onto Go values.

Results come in two shapes: free-form rows of map[string]Variant from
RawQuery, or caller-defined structs filled by reflection:

	type Win32_Process struct {
		Name      string
		ProcessID uint32
	}

	var dst []Win32_Process
	q := wmi.CreateQuery(&dst, "")
	err := wmi.Query(q, &dst)

For repeated queries hold an SWbemServicesConnection; the package-level Query
spins up and tears down a locator per call. Event subscriptions and
channel-bridged asynchronous queries are available on a connection, see
ExecNotificationQuery and QueryAsync.

On non-Windows platforms the package compiles but every operation returns
ErrNotSupported.
*/
package wmi
