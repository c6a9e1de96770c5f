package models

// Detection represents one detected object in a frame. Detections are
// ephemeral: produced per inference call, consumed by the counter,
// never persisted raw.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// CenterX returns the x coordinate of the bounding-box centroid.
func (d Detection) CenterX() float64 { return float64(d.X) + float64(d.Width)/2 }

// CenterY returns the y coordinate of the bounding-box centroid.
func (d Detection) CenterY() float64 { return float64(d.Y) + float64(d.Height)/2 }
