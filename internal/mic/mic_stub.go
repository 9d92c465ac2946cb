//go:build !whisper

package mic

import "context"

// List returns ErrUnavailable.
func List() ([]Device, error) { return nil, ErrUnavailable }

// Record returns ErrUnavailable.
func Record(ctx context.Context, opts Options) ([]int16, error) { return nil, ErrUnavailable }
