//go:build windows

package flash

import "errors"

// ErrImageUnsupported is returned by OpenImage on platforms without mmap support.
var ErrImageUnsupported = errors.New("flash: image files are not supported on windows")

// Image is unavailable on windows.
type Image struct{}

// OpenImage always fails on windows.
func OpenImage(path string, geo Geometry) (*Image, error) {
	return nil, ErrImageUnsupported
}

// ReadImageGeometry always fails on windows.
func ReadImageGeometry(path string) (Geometry, error) {
	return Geometry{}, ErrImageUnsupported
}

// Area always fails on windows.
func (img *Image) Area(a Area) (Backend, error) {
	return nil, ErrImageUnsupported
}

// Geometry returns the zero geometry.
func (img *Image) Geometry() Geometry {
	return Geometry{}
}

// Path returns "".
func (img *Image) Path() string {
	return ""
}

// Sync always fails on windows.
func (img *Image) Sync() error {
	return ErrImageUnsupported
}

// Close is a no-op.
func (img *Image) Close() error {
	return nil
}
