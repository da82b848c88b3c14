package face

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Detection parameters are constants, not per-call knobs: a profile photo
// needs one best-effort crop, and fixed parameters keep detection
// deterministic.
const (
	scaleFactor  = 1.1
	minNeighbors = 5
	minFaceSize  = 60
)

// CascadeLocator runs an OpenCV Haar cascade over a frame.
type CascadeLocator struct {
	classifier gocv.CascadeClassifier
}

// NewCascadeLocator loads the cascade model from path, typically
// haarcascade_frontalface_default.xml.
func NewCascadeLocator(path string) (*CascadeLocator, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		_ = classifier.Close()
		return nil, fmt.Errorf("load face cascade %s failed", path)
	}
	return &CascadeLocator{classifier: classifier}, nil
}

// Locate returns the first detected region in cascade scan order
// (top-left to bottom-right). Multiple faces resolve to the first match;
// there is no ranking by size or position. TODO: expose a largest-region
// policy once product confirms which crop operators actually want.
func (l *CascadeLocator) Locate(frame image.Image) (image.Rectangle, bool) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return image.Rectangle{}, false
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	regions := l.classifier.DetectMultiScaleWithParams(
		gray, scaleFactor, minNeighbors, 0,
		image.Pt(minFaceSize, minFaceSize), image.Pt(0, 0),
	)
	if len(regions) == 0 {
		return image.Rectangle{}, false
	}
	return regions[0], true
}

// Close releases the classifier.
func (l *CascadeLocator) Close() error {
	return l.classifier.Close()
}
