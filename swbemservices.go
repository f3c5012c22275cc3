//go:build windows
// +build windows

package wmi

import (
	"sync"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/scjalliance/comshim"
)

// ConnectServerArgs names the parameters of `SWbemLocator.ConnectServer`.
// The zero value connects to the default namespace on the local machine.
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/swbemlocator-connectserver
type ConnectServerArgs struct {
	// Server is the computer name or IP; empty means the local machine.
	Server string

	// Namespace is e.g. `ROOT\CIMV2`. Empty means the local machine default;
	// for remote servers it pins `ROOT\CIMV2` rather than trusting the
	// remote configuration.
	Namespace string

	// User, Password and Authority authenticate against a remote server.
	// They must stay empty for local connections.
	User      string
	Password  string
	Authority string

	// Locale, e.g. "MS_409"; empty means the current locale.
	Locale string
}

// wbemFlagConnectUseMaxWait caps ConnectServer at two minutes instead of
// blocking indefinitely.
const wbemFlagConnectUseMaxWait = 0x80

func (a ConnectServerArgs) callArgs() []interface{} {
	namespace := a.Namespace
	if a.Server != "" && namespace == "" {
		// A remote server may be configured with any default namespace;
		// pin the conventional one instead of inheriting its setting.
		namespace = `ROOT\CIMV2`
	}
	return []interface{}{
		a.Server,
		namespace,
		a.User,
		a.Password,
		a.Locale,
		a.Authority,
		wbemFlagConnectUseMaxWait,
	}
}

// SWbemServices wraps the `WbemScripting.SWbemLocator` COM object. It can
// open connections to any server/namespace, each one an independent
// SWbemServicesConnection.
//
// If you only query a single namespace, prefer holding the connection
// directly (see ConnectSWbemServices).
type SWbemServices struct {
	sync.Mutex
	Decoder

	sWbemLocator *ole.IDispatch
}

// NewSWbemServices creates the locator. Every live locator pins the
// process-wide COM apartment through comshim.
func NewSWbemServices() (s *SWbemServices, err error) {
	//  Be aware of reflections and COM usage.
	defer func() {
		if r := recover(); r != nil {
			err = multierror.Append(err, errors.Errorf("runtime panic; %v", r))
		}
	}()

	comshim.Add(1)
	defer func() {
		if err != nil {
			comshim.Done()
		}
	}()

	locatorIUnknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return nil, errors.Wrap(err, "CreateObject SWbemLocator")
	} else if locatorIUnknown == nil {
		return nil, ErrNilCreateObject
	}
	defer locatorIUnknown.Release()

	sWbemLocator, err := locatorIUnknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, errors.Wrap(err, "SWbemLocator QueryInterface")
	}

	return &SWbemServices{sWbemLocator: sWbemLocator}, nil
}

// Close releases the locator. Connections opened through it stay valid.
func (s *SWbemServices) Close() error {
	s.Lock()
	defer s.Unlock()
	if s.sWbemLocator == nil {
		return ErrConnectionClosed
	}
	s.sWbemLocator.Release()
	s.sWbemLocator = nil
	comshim.Done()
	return nil
}

// ConnectServer opens a connection to the server and namespace described by
// @args.
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/swbemlocator-connectserver
func (s *SWbemServices) ConnectServer(args ConnectServerArgs) (c *SWbemServicesConnection, err error) {
	//  Be aware of reflections and COM usage.
	defer func() {
		if r := recover(); r != nil {
			err = multierror.Append(err, errors.Errorf("runtime panic; %v", r))
		}
	}()

	s.Lock()
	if s.sWbemLocator == nil {
		s.Unlock()
		return nil, ErrConnectionClosed
	}
	s.Unlock()

	// The connection carries its own comshim reference so it survives the
	// locator being closed first.
	comshim.Add(1)
	defer func() {
		if err != nil {
			comshim.Done()
		}
	}()

	serviceRaw, err := oleutil.CallMethod(s.sWbemLocator, "ConnectServer", args.callArgs()...)
	if err != nil {
		return nil, errors.Wrap(err, "SWbemServices ConnectServer")
	}
	service := serviceRaw.ToIDispatch()
	if service == nil {
		return nil, errors.New("wmi: SWbemServices IDispatch returned nil")
	}

	// The IDispatch lives inside the variant's memory and VariantClear would
	// not release anything here, so serviceRaw needs no Clear.

	conn := &SWbemServicesConnection{
		Decoder:       s.Decoder,
		sWbemServices: service,
	}
	conn.Decoder.Dereferencer = conn
	return conn, nil
}

// Query opens a connection per @args, runs the WQL query, appends the
// decoded values to dst and tears the connection down again.
//
// More info about result decoding is available in `Decoder.Unmarshal` doc.
func (s *SWbemServices) Query(query string, dst interface{}, args ConnectServerArgs) (err error) {
	connection, err := s.ConnectServer(args)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := connection.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()
	return connection.Query(query, dst)
}

// ConnectSWbemServices creates a single connection to the server/namespace
// described by @args, creating and disposing a temporary locator around it.
func ConnectSWbemServices(args ConnectServerArgs) (conn *SWbemServicesConnection, err error) {
	services, err := NewSWbemServices()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := services.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()
	return services.ConnectServer(args)
}
