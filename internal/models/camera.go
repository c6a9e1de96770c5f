package models

// Camera represents one configured traffic camera. Cameras are loaded
// at startup and read-only afterwards.
type Camera struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
