package snapshot

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLocator struct {
	region image.Rectangle
	found  bool
}

func (s stubLocator) Locate(image.Image) (image.Rectangle, bool) {
	return s.region, s.found
}

// halves returns a frame whose left half is red and right half is blue.
func halves(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func newProducer(t *testing.T, loc stubLocator) (*Producer, string) {
	t.Helper()
	staging := filepath.Join(t.TempDir(), "temp.jpg")
	return NewProducer(loc, staging), staging
}

func decodeStaged(t *testing.T, staging string) image.Image {
	t.Helper()
	data, err := os.ReadFile(staging)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestCaptureNoFaceFallsBackToFullFrame(t *testing.T) {
	p, staging := newProducer(t, stubLocator{found: false})

	data, err := p.Capture(halves(64, 48))
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	img := decodeStaged(t, staging)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestCaptureMirrorsFrame(t *testing.T) {
	p, staging := newProducer(t, stubLocator{found: false})

	// Source right half is blue; after mirroring it lands on the left.
	_, err := p.Capture(halves(64, 48))
	require.NoError(t, err)

	img := decodeStaged(t, staging)
	r, _, b, _ := img.At(20, 100).RGBA()
	assert.Greater(t, b, r, "left side of the staged photo should be the source's right half")
}

func TestCaptureCropsToFaceRegion(t *testing.T) {
	// Locate the left half of the mirrored frame, which is the source's
	// blue right half.
	p, staging := newProducer(t, stubLocator{region: image.Rect(0, 0, 32, 48), found: true})

	_, err := p.Capture(halves(64, 48))
	require.NoError(t, err)

	img := decodeStaged(t, staging)
	r, _, b, _ := img.At(100, 100).RGBA()
	assert.Greater(t, b, r, "cropped photo should contain only the located region")
}

func TestCaptureIgnoresRegionOutsideFrame(t *testing.T) {
	p, staging := newProducer(t, stubLocator{region: image.Rect(500, 500, 700, 700), found: true})

	_, err := p.Capture(halves(64, 48))
	require.NoError(t, err)

	img := decodeStaged(t, staging)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestCaptureNilFrameFails(t *testing.T) {
	p, staging := newProducer(t, stubLocator{})

	_, err := p.Capture(nil)
	require.ErrorIs(t, err, ErrCaptureFailed)
	_, statErr := os.Stat(staging)
	assert.True(t, os.IsNotExist(statErr), "failed capture must not stage an artifact")
}

func TestCaptureOverwritesPriorArtifact(t *testing.T) {
	p, staging := newProducer(t, stubLocator{found: false})

	first, err := p.Capture(halves(64, 48))
	require.NoError(t, err)

	solid := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			solid.SetRGBA(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	second, err := p.Capture(solid)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	staged, err := os.ReadFile(staging)
	require.NoError(t, err)
	assert.Equal(t, second, staged, "latest snap wins")
}

func TestStagedNilWhenAbsent(t *testing.T) {
	p, _ := newProducer(t, stubLocator{})

	data, err := p.Staged()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStagedReturnsCapturedBytes(t *testing.T) {
	p, _ := newProducer(t, stubLocator{found: false})

	captured, err := p.Capture(halves(64, 48))
	require.NoError(t, err)

	staged, err := p.Staged()
	require.NoError(t, err)
	assert.Equal(t, captured, staged)
}

func TestClearIsIdempotent(t *testing.T) {
	p, _ := newProducer(t, stubLocator{found: false})

	require.NoError(t, p.Clear(), "clearing with nothing staged is fine")

	_, err := p.Capture(halves(64, 48))
	require.NoError(t, err)
	require.NoError(t, p.Clear())
	require.NoError(t, p.Clear())

	data, err := p.Staged()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestMirror(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	src.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})

	out := mirror(src)
	r0, g0, _, _ := out.At(0, 0).RGBA()
	assert.Zero(t, r0)
	assert.NotZero(t, g0)
}
