package detector

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"trafficcam/internal/errs"
	"trafficcam/internal/models"
)

// DNN runs SSD MobileNet through the OpenCV DNN module. A DNN is not
// safe for concurrent Detect calls; the service keeps one instance per
// worker and must wait for Idle before reusing one whose Detect timed
// out.
type DNN struct {
	net           gocv.Net
	confThreshold float64
	vehicles      map[string]bool

	mu   sync.Mutex
	idle chan struct{} // closed while no forward pass is running
}

// NewDNN loads the frozen graph and its pbtxt config. Missing model
// files are a startup failure.
func NewDNN(modelPath, configPath string, confThreshold float64, vehicleClasses []string) (*DNN, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model config file not found: %s", configPath)
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		return nil, fmt.Errorf("failed to set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, fmt.Errorf("failed to set network target: %w", err)
	}

	idle := make(chan struct{})
	close(idle)
	return &DNN{
		net:           net,
		confThreshold: confThreshold,
		vehicles:      classSet(vehicleClasses),
		idle:          idle,
	}, nil
}

// Close releases the network.
func (d *DNN) Close() {
	d.net.Close()
}

type forwardResult struct {
	detections []models.Detection
	err        error
}

// Detect decodes the image, runs one forward pass, and returns the
// thresholded vehicle detections. The forward pass runs in its own
// goroutine so a slow frame fails with InferenceError when ctx
// expires instead of hanging the request.
func (d *DNN) Detect(ctx context.Context, imageBytes []byte) ([]models.Detection, error) {
	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, &errs.InferenceError{Reason: "failed to decode image", Err: err}
	}
	if mat.Empty() {
		mat.Close()
		return nil, &errs.InferenceError{Reason: "decoded image is empty"}
	}

	busy := make(chan struct{})
	d.mu.Lock()
	d.idle = busy
	d.mu.Unlock()

	done := make(chan forwardResult, 1)
	go func() {
		defer close(busy)
		defer mat.Close()
		done <- d.forward(mat)
	}()

	select {
	case <-ctx.Done():
		return nil, &errs.InferenceError{Reason: "inference timed out", Err: ctx.Err()}
	case res := <-done:
		return res.detections, res.err
	}
}

// Idle returns a channel that is closed once the network has no
// forward pass running. A Detect that returned at its deadline leaves
// the pass running in the background; callers must wait here before
// the next Detect.
func (d *DNN) Idle() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle
}

// forward runs the blob through the network and decodes the output
// tensor. Called from Detect's goroutine only.
func (d *DNN) forward(mat gocv.Mat) forwardResult {
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return forwardResult{err: &errs.InferenceError{Reason: "model returned empty output"}}
	}

	raw, err := output.DataPtrFloat32()
	if err != nil {
		return forwardResult{err: &errs.InferenceError{Reason: "failed to read output tensor", Err: err}}
	}

	detections := postprocess(raw, mat.Cols(), mat.Rows(), d.confThreshold, d.vehicles)
	return forwardResult{detections: detections}
}

// Annotate draws detection boxes and labels onto a JPEG copy of the
// image, for the live viewer stream.
func Annotate(imageBytes []byte, detections []models.Detection) ([]byte, error) {
	green := color.RGBA{G: 255}

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	for _, det := range detections {
		rect := image.Rect(det.X, det.Y, det.X+det.Width, det.Y+det.Height)
		if err := gocv.Rectangle(&mat, rect, green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.2f)", det.Label, det.Confidence)
		if err := gocv.PutText(&mat, label, image.Pt(det.X, det.Y-5), gocv.FontHersheySimplex, 0.5, green, 1); err != nil {
			return nil, fmt.Errorf("failed to draw label: %w", err)
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
