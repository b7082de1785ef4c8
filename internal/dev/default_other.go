// +build !linux

package dev

import "github.com/pkg/errors"

// DefaultStack is only available on Linux.
func DefaultStack() (*Stack, error) {
	return nil, errors.New("no bluetooth transports on this platform; use the loop stack")
}
