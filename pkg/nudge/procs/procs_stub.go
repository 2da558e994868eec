//go:build !linux

package procs

import "context"

// System is a placeholder on platforms without the accounting interfaces the
// controller needs.
type System struct{}

// New always fails off Linux.
func New() (*System, error) {
	return nil, ErrUnsupported
}

// Snapshot always fails on unsupported platforms.
func (s *System) Snapshot(ctx context.Context) ([]Proc, error) {
	return nil, ErrUnsupported
}

// SetNice always fails on unsupported platforms.
func (s *System) SetNice(pid int32, nice int) error {
	return ErrUnsupported
}
