package session

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"sync"
	"time"

	"visitorgate/internal/camera"
	"visitorgate/internal/snapshot"
)

// State names the capture session lifecycle stage.
type State int

const (
	Closed State = iota
	Opening
	Streaming
)

func (s State) String() string {
	switch s {
	case Opening:
		return "opening"
	case Streaming:
		return "streaming"
	default:
		return "closed"
	}
}

// Preview receives the newest frame for display. Implementations must be
// cheap; a slow renderer only misses frames, it cannot stall acquisition.
type Preview interface {
	PushFrame(frame image.Image)
}

// Session owns the camera device across an open → streaming → close cycle.
// At most one device handle is ever live: changing device closes the old
// handle before opening the new one, structurally, not by convention.
type Session struct {
	source   camera.Source
	producer *snapshot.Producer
	preview  Preview
	interval time.Duration

	mu     sync.Mutex
	state  State
	index  int
	device camera.Device
	stop   chan struct{}
}

// New creates a closed session. interval is the frame polling period; it is
// independent of how fast the preview renders.
func New(source camera.Source, producer *snapshot.Producer, preview Preview, interval time.Duration) *Session {
	if interval <= 0 {
		interval = 30 * time.Millisecond
	}
	return &Session{
		source:   source,
		producer: producer,
		preview:  preview,
		interval: interval,
	}
}

// State reports the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DeviceIndex reports the streaming device index, false when closed.
func (s *Session) DeviceIndex() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, s.state == Streaming
}

// Open acquires the device at index and starts frame polling. On failure
// the session stays Closed and the device error is surfaced.
func (s *Session) Open(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(index)
}

// ChangeDevice switches to another camera. Same index while streaming is a
// no-op; otherwise the current handle is closed before the new one opens.
func (s *Session) ChangeDevice(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Streaming && index == s.index {
		return nil
	}
	s.closeLocked()
	return s.openLocked(index)
}

// Snap reads one frame and stages the profile snapshot, pushing the result
// to the preview. State is unchanged whether or not the snap succeeds.
func (s *Session) Snap() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Streaming || s.device == nil {
		return nil, snapshot.ErrCaptureFailed
	}
	frame, err := s.device.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", snapshot.ErrCaptureFailed, err)
	}
	data, err := s.producer.Capture(frame)
	if err != nil {
		return nil, err
	}
	if s.preview != nil {
		if thumb, err := jpeg.Decode(bytes.NewReader(data)); err == nil {
			s.preview.PushFrame(thumb)
		}
	}
	return data, nil
}

// Close stops polling and releases the device. Safe from any state and any
// number of times, including on a session that never opened.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) openLocked(index int) error {
	s.closeLocked()
	s.state = Opening
	device, err := s.source.Open(index)
	if err != nil {
		s.state = Closed
		return err
	}
	s.device = device
	s.index = index
	s.state = Streaming
	s.stop = make(chan struct{})
	go s.poll(device, s.stop)
	return nil
}

func (s *Session) closeLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	if s.device != nil {
		if err := s.device.Close(); err != nil {
			log.Printf("camera close: %v", err)
		}
		s.device = nil
	}
	s.state = Closed
}

// poll pushes the newest frame to the preview on a fixed interval. A failed
// read is skipped; the operator retries by waiting for the next tick.
func (s *Session) poll(device camera.Device, stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame, err := device.ReadFrame()
			if err != nil {
				continue
			}
			if s.preview != nil {
				s.preview.PushFrame(frame)
			}
		}
	}
}
