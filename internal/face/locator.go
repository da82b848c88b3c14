package face

import "image"

// Locator finds at most one face region in a frame. The second return is
// false when no face was detected; callers fall back to the whole frame.
type Locator interface {
	Locate(frame image.Image) (image.Rectangle, bool)
}

// None never finds a face. Used when no cascade model is available, so
// snapshots degrade to the full mirrored frame instead of failing.
type None struct{}

func (None) Locate(image.Image) (image.Rectangle, bool) {
	return image.Rectangle{}, false
}
