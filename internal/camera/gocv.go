package camera

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// capture is the slice of gocv.VideoCapture the source depends on.
type capture interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// GocvSource opens webcams through OpenCV. It tracks which indices hold a
// live handle so a second claim on the same device fails fast instead of
// sharing it.
type GocvSource struct {
	mu     sync.Mutex
	open   map[int]bool
	openFn func(index int) (capture, error)
}

// NewGocvSource creates a source with no devices claimed.
func NewGocvSource() *GocvSource {
	return &GocvSource{
		open: make(map[int]bool),
		openFn: func(index int) (capture, error) {
			return gocv.OpenVideoCapture(index)
		},
	}
}

// Open claims the device at index.
func (s *GocvSource) Open(index int) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open[index] {
		return nil, fmt.Errorf("index %d: %w", index, ErrDeviceBusy)
	}

	cam, err := s.openFn(index)
	if err != nil {
		return nil, fmt.Errorf("index %d: %w", index, ErrDeviceUnavailable)
	}
	if !cam.IsOpened() {
		_ = cam.Close()
		return nil, fmt.Errorf("index %d: %w", index, ErrDeviceUnavailable)
	}

	s.open[index] = true
	mat := gocv.NewMat()
	return &gocvDevice{src: s, index: index, cam: cam, frame: &mat}, nil
}

func (s *GocvSource) release(index int) {
	s.mu.Lock()
	delete(s.open, index)
	s.mu.Unlock()
}

type gocvDevice struct {
	src   *GocvSource
	index int

	mu     sync.Mutex
	cam    capture
	frame  *gocv.Mat
	closed bool
}

// ReadFrame grabs one frame and converts it to a plain image so nothing
// downstream depends on OpenCV types.
func (d *gocvDevice) ReadFrame() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrReadFailed
	}
	if ok := d.cam.Read(d.frame); !ok || d.frame.Empty() {
		return nil, ErrReadFailed
	}
	img, err := d.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", ErrReadFailed)
	}
	return img, nil
}

// Close releases the capture handle and the index claim. Safe to call more
// than once.
func (d *gocvDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	_ = d.frame.Close()
	err := d.cam.Close()
	d.src.release(d.index)
	return err
}
