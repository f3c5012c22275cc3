//go:build windows
// +build windows

package wmi

import (
	"context"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/scjalliance/comshim"
)

// Event is a single notification query result. Exactly one of Values and
// Err is set; an Event with Err set is always the last one on its channel.
type Event struct {
	Values map[string]Variant
	Err    error
}

// nextEventTimeoutMS bounds each native NextEvent wait so the polling
// goroutine notices context cancellation.
const nextEventTimeoutMS = 500

// ExecNotificationQuery subscribes to the event query and delivers incoming
// events on the returned channel until @ctx is cancelled or a hard error
// occurs. Event queries select from event classes, e.g.
//
//	SELECT * FROM __InstanceCreationEvent WITHIN 1 WHERE TargetInstance ISA 'Win32_Process'
//
// (see BuildNotificationQuery).
//
// Ref: https://docs.microsoft.com/en-us/windows/desktop/wmisdk/swbemservices-execnotificationquery
func (s *SWbemServicesConnection) ExecNotificationQuery(ctx context.Context, query string) (<-chan Event, error) {
	services, err := s.services()
	if err != nil {
		return nil, err
	}

	// The event source must be created before returning so that an invalid
	// query fails the call instead of the channel.
	source, err := execNotificationQuery(services, query)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 64)

	comshim.Add(1)

	go func() {
		defer close(out)
		defer comshim.Done()
		defer source.Clear() //nolint:errcheck // Releasing on the way out.

		eventSource := source.ToIDispatch()
		for {
			if ctx.Err() != nil {
				return
			}

			eventRaw, err := oleutil.CallMethod(eventSource, "NextEvent", nextEventTimeoutMS)
			if err != nil {
				if isWbemTimeout(err) {
					continue // No event inside the poll window; check ctx and wait again.
				}
				select {
				case out <- Event{Err: wbemError(err)}:
				case <-ctx.Done():
				}
				return
			}

			event := func() Event {
				item := eventRaw.ToIDispatch()
				defer eventRaw.Clear() //nolint:errcheck

				values, propErr := objectProperties(item)
				if propErr != nil {
					return Event{Err: propErr}
				}
				return Event{Values: values}
			}()

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
			if event.Err != nil {
				return
			}
		}
	}()

	return out, nil
}

// NotificationQuery is a convenience wrapper building the event query from a
// class name, typed filters and a WITHIN polling interval, then subscribing.
func (s *SWbemServicesConnection) NotificationQuery(ctx context.Context, class string, filters map[string]FilterValue, within time.Duration) (<-chan Event, error) {
	return s.ExecNotificationQuery(ctx, BuildNotificationQuery(class, filters, within))
}

func execNotificationQuery(services *ole.IDispatch, query string) (v *ole.VARIANT, err error) {
	//  Be aware of reflections and COM usage.
	defer func() {
		if r := recover(); r != nil {
			err = multierror.Append(err, errors.Errorf("runtime panic; %v", r))
		}
	}()

	// wbemFlagForwardOnly | wbemFlagReturnImmediately: mandatory for
	// ExecNotificationQuery, which only supports semisynchronous mode.
	const flags = 0x20 | 0x10

	source, err := oleutil.CallMethod(services, "ExecNotificationQuery", query, "WQL", flags)
	if err != nil {
		return nil, wbemError(err)
	}
	if source.ToIDispatch() == nil {
		return nil, errors.New("wmi: ExecNotificationQuery returned no event source")
	}
	return source, nil
}

// isWbemTimeout reports whether the COM failure is WBEM_S_TIMEDOUT, which
// NextEvent returns when no event arrived within the requested interval.
func isWbemTimeout(err error) bool {
	oleErr, ok := err.(*ole.OleError)
	if !ok {
		return false
	}
	if oleErr.Code() == WbemErrTimedOut {
		return true
	}
	// SWbemObjectEx surfaces the timeout through a wrapped EXCEPINFO.
	if sub, ok := oleErr.SubError().(ole.EXCEPINFO); ok {
		return uint32(sub.SCODE()) == WbemErrTimedOut
	}
	return false
}
