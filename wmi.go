//go:build windows
// +build windows

package wmi

import (
	"github.com/hashicorp/go-multierror"
)

// A Client is a WMI query client.
//
// Its zero value (`DefaultClient`) is a usable client. Modify the embedded
// `Decoder` fields to change result decoding behaviour.
//
// Important: a zero-value Client creates and tears down a COM locator and
// connection per query. Set `SWbemServicesClient` to reuse one across calls.
type Client struct {
	// Embedded Decoder for backward-compatibility.
	Decoder

	// SWbemServicesClient is an optional SWbemServices object that can be
	// initialized and then reused across multiple queries. If it is nil
	// then the method will initialize a new temporary client each time.
	SWbemServicesClient *SWbemServices
}

// DefaultClient is the default Client and is used by Query and
// QueryNamespace.
var DefaultClient = &Client{}

// Query runs the WQL query with the given client and appends the values to
// dst, connecting per @args.
func (c *Client) Query(query string, dst interface{}, args ConnectServerArgs) (err error) {
	client := c.SWbemServicesClient
	if client == nil {
		client, err = NewSWbemServices()
		if err != nil {
			return err
		}
		defer func() {
			if clErr := client.Close(); clErr != nil {
				err = multierror.Append(err, clErr)
			}
		}()
	}
	client.Decoder = c.Decoder // Patch decoder to use set decoder flags inside `Query`.
	return client.Query(query, dst, args)
}

// Query runs the WQL query on the local machine and default namespace and
// appends the values to dst.
//
// More info about result decoding is available in `Decoder.Unmarshal` doc.
//
// Query is a wrapper around DefaultClient.Query.
func Query(query string, dst interface{}) error {
	return DefaultClient.Query(query, dst, ConnectServerArgs{})
}

// QueryNamespace invokes Query with the given namespace on the local machine.
func QueryNamespace(query string, dst interface{}, namespace string) error {
	return DefaultClient.Query(query, dst, ConnectServerArgs{Namespace: namespace})
}
