// Package detector wraps the pretrained object-detection model behind
// one narrow interface so the counting and aggregation logic stays
// independent of the inference runtime.
package detector

import (
	"context"

	"trafficcam/internal/models"
)

// Detector produces vehicle detections for one image. Implementations
// apply the confidence threshold and restrict results to the
// configured vehicle classes; non-vehicle detections never reach the
// counter. A failed call returns an InferenceError and must not be
// confused with a legitimate empty result.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]models.Detection, error)
}

// Idler is implemented by detectors whose Detect can return before the
// underlying inference has finished, such as a forward pass abandoned
// at the request deadline. Idle returns a channel that is closed once
// any in-flight work has settled and the detector is safe to reuse.
type Idler interface {
	Idle() <-chan struct{}
}

// cocoLabels maps SSD MobileNet COCO class ids to labels. Only the
// classes relevant to a traffic camera are listed; unknown ids are
// skipped during postprocessing.
var cocoLabels = map[int]string{
	1:  "person",
	2:  "bicycle",
	3:  "car",
	4:  "motorcycle",
	6:  "bus",
	7:  "train",
	8:  "truck",
	17: "cat",
	18: "dog",
}

// classSet builds a membership set from the configured vehicle class
// labels.
func classSet(classes []string) map[string]bool {
	set := make(map[string]bool, len(classes))
	for _, c := range classes {
		set[c] = true
	}
	return set
}
