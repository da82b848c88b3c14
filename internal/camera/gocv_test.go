package camera

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type stubCapture struct {
	opened bool
	closed bool
}

func (c *stubCapture) Read(*gocv.Mat) bool { return false }
func (c *stubCapture) IsOpened() bool      { return c.opened }
func (c *stubCapture) Close() error {
	c.closed = true
	return nil
}

func stubSource(openFn func(int) (capture, error)) *GocvSource {
	return &GocvSource{open: make(map[int]bool), openFn: openFn}
}

func TestGocvSourceSecondClaimFailsFast(t *testing.T) {
	src := stubSource(func(int) (capture, error) {
		return &stubCapture{opened: true}, nil
	})

	dev, err := src.Open(0)
	require.NoError(t, err)
	defer dev.Close()

	_, err = src.Open(0)
	assert.ErrorIs(t, err, ErrDeviceBusy)
}

func TestGocvSourceCloseReleasesClaim(t *testing.T) {
	src := stubSource(func(int) (capture, error) {
		return &stubCapture{opened: true}, nil
	})

	dev, err := src.Open(0)
	require.NoError(t, err)
	require.NoError(t, dev.Close())

	dev, err = src.Open(0)
	require.NoError(t, err, "a released index can be claimed again")
	_ = dev.Close()
}

func TestGocvSourceDistinctIndicesIndependent(t *testing.T) {
	src := stubSource(func(int) (capture, error) {
		return &stubCapture{opened: true}, nil
	})

	d0, err := src.Open(0)
	require.NoError(t, err)
	defer d0.Close()

	d1, err := src.Open(1)
	require.NoError(t, err)
	defer d1.Close()
}

func TestGocvSourceOpenFailureLeavesIndexFree(t *testing.T) {
	fail := true
	src := stubSource(func(int) (capture, error) {
		if fail {
			return nil, errors.New("no such device")
		}
		return &stubCapture{opened: true}, nil
	})

	_, err := src.Open(0)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)

	fail = false
	dev, err := src.Open(0)
	require.NoError(t, err, "a failed open must not leave the index claimed")
	_ = dev.Close()
}

func TestGocvSourceUnopenedHandleIsReleased(t *testing.T) {
	stub := &stubCapture{opened: false}
	src := stubSource(func(int) (capture, error) { return stub, nil })

	_, err := src.Open(0)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.True(t, stub.closed, "a handle that never opened must be closed")
}
