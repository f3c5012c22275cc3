//go:build !windows
// +build !windows

package wmi

// Object is a handle to a WMI class object. It is only functional on
// Windows; this placeholder keeps Variant usable in cross-platform code.
type Object struct{}

// Path returns the full object path (the `__PATH` system property).
func (o *Object) Path() (string, error) { return "", ErrNotSupported }

// Class returns the class name (the `__CLASS` system property).
func (o *Object) Class() (string, error) { return "", ErrNotSupported }

// Properties expands the object's properties into a map of variants.
func (o *Object) Properties() (map[string]Variant, error) { return nil, ErrNotSupported }

// Release drops the handle's reference on the underlying object.
func (o *Object) Release() {}

// MarshalJSON implements json.Marshaler.
func (o *Object) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Query is only supported on Windows.
func Query(query string, dst interface{}) error { return ErrNotSupported }

// QueryNamespace is only supported on Windows.
func QueryNamespace(query string, dst interface{}, namespace string) error {
	return ErrNotSupported
}
