// Package counter reduces raw per-frame detections into a trustworthy
// per-invocation vehicle count: ROI gating, then cross-frame
// deduplication against a bounded per-camera memory of recently
// counted vehicles.
package counter

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"trafficcam/internal/errs"
	"trafficcam/internal/geo"
	"trafficcam/internal/models"
	"trafficcam/internal/registry"
	"trafficcam/internal/roi"
)

// trackedBox is one remembered vehicle from a recent frame.
type trackedBox struct {
	id  uuid.UUID
	box geo.Rect
}

// window is the short-lived tracking memory for one camera: a
// fixed-capacity ring of recent frames, evicted by age. Guarded by its
// own mutex so cameras do not serialize each other.
type window struct {
	mu     sync.Mutex
	frames []frame
}

type frame struct {
	at    time.Time
	boxes []trackedBox
}

// Counter turns detections for one camera frame into a count.
type Counter struct {
	registry     *registry.Registry
	rois         *roi.Store
	iouThreshold float64
	capacity     int // frames remembered per camera
	maxAge       time.Duration

	mu      sync.RWMutex
	windows map[string]*window

	now func() time.Time // swapped in tests
}

// New creates a Counter. iouThreshold is the overlap above which a
// detection is considered the same physical vehicle as one already
// counted; capacity and maxAge bound the per-camera memory.
func New(reg *registry.Registry, rois *roi.Store, iouThreshold float64, capacity int, maxAge time.Duration) *Counter {
	if capacity < 1 {
		capacity = 1
	}
	return &Counter{
		registry:     reg,
		rois:         rois,
		iouThreshold: iouThreshold,
		capacity:     capacity,
		maxAge:       maxAge,
		windows:      make(map[string]*window),
		now:          time.Now,
	}
}

// Count returns the number of distinct vehicles observed in this
// frame. Detections whose centroid falls outside the camera's ROI
// contribute nothing; detections overlapping a remembered vehicle are
// not recounted. The result is never negative and never exceeds
// len(detections). An unregistered camera fails fast with
// UnknownCameraError before any geometry work.
func (c *Counter) Count(cameraID string, detections []models.Detection) (int, error) {
	if !c.registry.Has(cameraID) {
		return 0, &errs.UnknownCameraError{CameraID: cameraID}
	}

	inROI := make([]models.Detection, 0, len(detections))
	for _, det := range detections {
		if c.rois.Contains(cameraID, geo.Point{X: det.CenterX(), Y: det.CenterY()}) {
			inROI = append(inROI, det)
		}
	}

	w := c.window(cameraID)
	w.mu.Lock()
	defer w.mu.Unlock()

	now := c.now()
	w.evict(now, c.maxAge)

	counted := 0
	current := frame{at: now, boxes: make([]trackedBox, 0, len(inROI))}
	for _, det := range inROI {
		box := geo.Rect{X: float64(det.X), Y: float64(det.Y), Width: float64(det.Width), Height: float64(det.Height)}

		if id, seen := w.match(box, c.iouThreshold); seen {
			// Same physical vehicle as a recent frame: carry the track
			// forward at its new position without recounting it.
			current.boxes = append(current.boxes, trackedBox{id: id, box: box})
			continue
		}

		current.boxes = append(current.boxes, trackedBox{id: uuid.New(), box: box})
		counted++
	}

	w.push(current, c.capacity)
	return counted, nil
}

// Reset drops the tracking memory for one camera.
func (c *Counter) Reset(cameraID string) {
	c.mu.Lock()
	delete(c.windows, cameraID)
	c.mu.Unlock()
}

// window returns the per-camera tracking memory, creating it on first
// use with double-checked locking.
func (c *Counter) window(cameraID string) *window {
	c.mu.RLock()
	w, ok := c.windows[cameraID]
	c.mu.RUnlock()
	if ok {
		return w
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.windows[cameraID]; ok {
		return w
	}
	w = &window{}
	c.windows[cameraID] = w
	return w
}

// match returns the track id of a remembered box overlapping b above
// the threshold. Newest frames are checked first.
func (w *window) match(b geo.Rect, threshold float64) (uuid.UUID, bool) {
	for i := len(w.frames) - 1; i >= 0; i-- {
		for _, tb := range w.frames[i].boxes {
			if geo.IoU(tb.box, b) > threshold {
				return tb.id, true
			}
		}
	}
	return uuid.UUID{}, false
}

// evict drops frames older than maxAge.
func (w *window) evict(now time.Time, maxAge time.Duration) {
	keep := 0
	for _, f := range w.frames {
		if now.Sub(f.at) <= maxAge {
			w.frames[keep] = f
			keep++
		}
	}
	w.frames = w.frames[:keep]
}

// push appends a frame, dropping the oldest when the ring is full.
func (w *window) push(f frame, capacity int) {
	w.frames = append(w.frames, f)
	if len(w.frames) > capacity {
		copy(w.frames, w.frames[1:])
		w.frames = w.frames[:capacity]
	}
}
