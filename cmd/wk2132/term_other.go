//go:build !linux && !darwin

package main

import "errors"

func makeRaw(uintptr) (func() error, error) {
	return nil, errors.New("raw terminal mode not supported on this platform")
}
