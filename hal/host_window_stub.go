//go:build !tinygo && !cgo

package hal

import "errors"

// RunWindow needs ebiten, which needs cgo on the host.
func RunWindow(_ func(Platform) error, _ WindowConfig) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1); use -headless")
}
