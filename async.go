//go:build windows
// +build windows

package wmi

import (
	"context"

	"github.com/go-ole/go-ole"
	"github.com/scjalliance/comshim"
)

// Row is a single asynchronous query result. Exactly one of Values and Err
// is set; a Row with Err set is always the last one on its channel.
type Row struct {
	Values map[string]Variant
	Err    error
}

// QueryAsync runs the WQL query without blocking the caller. The native
// enumeration happens on a dedicated goroutine; rows are delivered on the
// returned channel as they arrive and buffer there until consumed. The
// channel is closed once the enumeration completes, fails, or @ctx is
// cancelled, whichever comes first.
//
// The connection must stay open while the channel is being consumed.
func (s *SWbemServicesConnection) QueryAsync(ctx context.Context, query string) (<-chan Row, error) {
	services, err := s.services()
	if err != nil {
		return nil, err
	}

	// Rows buffer in the channel so a slow consumer does not stall the
	// enumerator for the common result sizes.
	out := make(chan Row, 64)

	// The goroutine pins the COM apartment itself: the caller may Close the
	// connection or drop the locator while rows are still being produced.
	comshim.Add(1)

	go func() {
		defer close(out)
		defer comshim.Done()

		err := s.forEachResult(services, "ExecQuery", query, func(item *ole.IDispatch) error {
			row, rowErr := objectProperties(item)
			if rowErr != nil {
				return rowErr
			}
			select {
			case out <- Row{Values: row}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
			select {
			case out <- Row{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

// QueryAsyncInto is the typed variant of QueryAsync: each result object is
// decoded into a fresh value produced by @newDst (a pointer to a struct) and
// delivered on the returned channel. A decode or enumeration failure is
// delivered as the final error and ends the stream.
func (s *SWbemServicesConnection) QueryAsyncInto(ctx context.Context, query string, newDst func() interface{}) (<-chan interface{}, <-chan error, error) {
	services, err := s.services()
	if err != nil {
		return nil, nil, err
	}

	out := make(chan interface{}, 64)
	errc := make(chan error, 1)

	comshim.Add(1)

	go func() {
		defer close(out)
		defer close(errc)
		defer comshim.Done()

		err := s.forEachResult(services, "ExecQuery", query, func(item *ole.IDispatch) error {
			dst := newDst()
			if decErr := s.Unmarshal(item, dst); decErr != nil {
				return decErr
			}
			select {
			case out <- dst:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
			errc <- err
		}
	}()

	return out, errc, nil
}
