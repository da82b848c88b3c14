package camera

import (
	"errors"
	"image"
)

var (
	// ErrDeviceUnavailable means the device could not be opened.
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	// ErrDeviceBusy means the index already has a live handle; the claim is
	// exclusive and never silently shared.
	ErrDeviceBusy = errors.New("camera device already open")
	// ErrReadFailed means the device yielded no frame.
	ErrReadFailed = errors.New("camera read failed")
)

// Source opens capture devices by index.
type Source interface {
	Open(index int) (Device, error)
}

// Device is an exclusive claim on one camera. Close is idempotent and safe
// on a handle that already failed.
type Device interface {
	ReadFrame() (image.Image, error)
	Close() error
}

// Probe reports which indices in 0..max-1 open successfully, releasing each
// probed handle immediately. Run once at startup to populate the device
// selection surface.
func Probe(src Source, max int) []int {
	var available []int
	for i := 0; i < max; i++ {
		dev, err := src.Open(i)
		if err != nil {
			continue
		}
		_ = dev.Close()
		available = append(available, i)
	}
	return available
}
