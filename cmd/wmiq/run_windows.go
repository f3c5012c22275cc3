//go:build windows
// +build windows

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/42wim/go-wmi"
)

func run(query string) error {
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	conn, err := wmi.ConnectSWbemServices(wmi.ConnectServerArgs{
		Server:    opts.Computer,
		Namespace: opts.Namespace,
		User:      opts.User,
		Password:  opts.Password,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Println("close connection:", err)
		}
	}()

	enc := json.NewEncoder(os.Stdout)
	if opts.Pretty {
		enc.SetIndent("", "  ")
	}

	if opts.Notification {
		events, err := conn.ExecNotificationQuery(ctx, query)
		if err != nil {
			return err
		}
		for event := range events {
			if event.Err != nil {
				return event.Err
			}
			if err := enc.Encode(event.Values); err != nil {
				return err
			}
		}
		// A timeout is the expected way to end an event stream.
		if ctx.Err() == context.DeadlineExceeded {
			return nil
		}
		return ctx.Err()
	}

	rows, err := conn.QueryAsync(ctx, query)
	if err != nil {
		return err
	}
	for row := range rows {
		if row.Err != nil {
			return row.Err
		}
		if err := enc.Encode(row.Values); err != nil {
			return err
		}
	}
	return ctx.Err()
}
