package main

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"
)

// latestFrame is the live-preview surface: it keeps only the newest frame
// pushed by the capture session and serves it as JPEG on demand. A slow
// consumer just misses frames.
type latestFrame struct {
	mu    sync.Mutex
	frame image.Image
}

func (p *latestFrame) PushFrame(frame image.Image) {
	p.mu.Lock()
	p.frame = frame
	p.mu.Unlock()
}

// JPEG encodes the newest frame; ok is false until one has arrived.
func (p *latestFrame) JPEG() ([]byte, bool) {
	p.mu.Lock()
	frame := p.frame
	p.mu.Unlock()
	if frame == nil {
		return nil, false
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 80}); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}
