//go:build !windows
// +build !windows

package main

import (
	"github.com/42wim/go-wmi"
)

func run(query string) error {
	return wmi.ErrNotSupported
}
