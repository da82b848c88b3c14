package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"visitorgate/internal/face"
)

// Canonical profile photo geometry and encoding.
const (
	profileWidth  = 200
	profileHeight = 200
	jpegQuality   = 85
)

// ErrCaptureFailed means no usable frame reached the producer.
var ErrCaptureFailed = errors.New("snapshot capture failed")

// Producer turns a raw camera frame into the staged profile photo: mirror,
// face crop, canonical resize, JPEG encode, write to the staging path. At
// most one staged artifact exists at any time.
type Producer struct {
	locator face.Locator
	staging string
}

// NewProducer creates a producer staging snapshots at stagingPath.
func NewProducer(locator face.Locator, stagingPath string) *Producer {
	return &Producer{locator: locator, staging: stagingPath}
}

// Capture processes one frame and overwrites the staged snapshot. The frame
// is mirrored first so the stored photo matches what the operator saw on
// screen; the face region is located on the mirrored frame and the whole
// frame is used when no face is found.
func (p *Producer) Capture(frame image.Image) ([]byte, error) {
	if frame == nil {
		return nil, ErrCaptureFailed
	}

	mirrored := mirror(frame)
	region := mirrored.Bounds()
	if r, ok := p.locator.Locate(mirrored); ok {
		if clipped := r.Intersect(mirrored.Bounds()); !clipped.Empty() {
			region = clipped
		}
	}

	resized := resize(mirrored.SubImage(region), profileWidth, profileHeight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.stage(buf.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Staged returns the bytes of the staged snapshot, nil when none exists.
func (p *Producer) Staged() ([]byte, error) {
	data, err := os.ReadFile(p.staging)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read staged snapshot: %w", err)
	}
	return data, nil
}

// Clear removes the staged snapshot. An absent file is not an error.
func (p *Producer) Clear() error {
	if err := os.Remove(p.staging); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear staged snapshot: %w", err)
	}
	return nil
}

func (p *Producer) stage(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p.staging), 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	if err := os.WriteFile(p.staging, data, 0o644); err != nil {
		return fmt.Errorf("write staged snapshot: %w", err)
	}
	return nil
}

func mirror(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, src.At(b.Max.X-1-x, b.Min.Y+y))
		}
	}
	return dst
}

func resize(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
