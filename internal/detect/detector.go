package detect

import (
	"image"
)

// Unknown is the label for a weed nobody has classified.
const Unknown = "unknown"

// Detection is one weed found in a frame.
type Detection struct {
	Bounds     image.Rectangle `json:"bounds"`
	Confidence float64         `json:"confidence"`
	WeedType   string          `json:"weed_type,omitempty"`
}

// Detector finds zero or more weeds in a camera frame. frame may be nil
// when the robot has no camera attached.
type Detector interface {
	Detect(frame image.Image) ([]Detection, error)
}

// Classifier names the species of a detection.
type Classifier interface {
	Classify(d Detection) string
}

// NoopDetector never finds anything. It stands in until a vision model is
// wired up.
type NoopDetector struct{}

func (NoopDetector) Detect(image.Image) ([]Detection, error) { return nil, nil }

// SimulatedDetector reports one weed of a fixed type on every call. Used
// for bench runs so the mapping pipeline can be exercised end to end.
type SimulatedDetector struct {
	WeedType string
}

func (d SimulatedDetector) Detect(frame image.Image) ([]Detection, error) {
	var bounds image.Rectangle
	if frame != nil {
		bounds = frame.Bounds()
	}
	return []Detection{{Bounds: bounds, Confidence: 1, WeedType: d.WeedType}}, nil
}

// UnknownClassifier labels everything Unknown.
type UnknownClassifier struct{}

func (UnknownClassifier) Classify(Detection) string { return Unknown }
