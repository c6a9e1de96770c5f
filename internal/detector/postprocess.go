package detector

import "trafficcam/internal/models"

// ssdFields is the stride of one SSD detection row:
// [batch, classID, confidence, left, top, right, bottom], coordinates
// normalized to [0,1].
const ssdFields = 7

// postprocess decodes the raw SSD output tensor into pixel-space
// detections, applying the confidence threshold and the vehicle-class
// restriction. Kept free of gocv so it is testable without a loaded
// model.
func postprocess(raw []float32, imgWidth, imgHeight int, confThreshold float64, vehicles map[string]bool) []models.Detection {
	var results []models.Detection

	for i := 0; i+ssdFields <= len(raw); i += ssdFields {
		confidence := float64(raw[i+2])
		if confidence < confThreshold {
			continue
		}

		label, known := cocoLabels[int(raw[i+1])]
		if !known || !vehicles[label] {
			continue
		}

		left := float64(raw[i+3]) * float64(imgWidth)
		top := float64(raw[i+4]) * float64(imgHeight)
		right := float64(raw[i+5]) * float64(imgWidth)
		bottom := float64(raw[i+6]) * float64(imgHeight)

		results = append(results, models.Detection{
			Label:      label,
			Confidence: confidence,
			X:          int(left),
			Y:          int(top),
			Width:      int(right - left),
			Height:     int(bottom - top),
		})
	}

	return results
}
