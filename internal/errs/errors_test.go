package errs

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	ts := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		err      error
		expected Kind
	}{
		{&ConfigError{Source: "cameras.csv", Reason: "bad row"}, KindConfig},
		{&UnknownCameraError{CameraID: "CAM99"}, KindUnknownCamera},
		{&InferenceError{Reason: "timed out"}, KindInference},
		{&DuplicateRecordError{CameraID: "CAM01", Timestamp: ts}, KindDuplicateRecord},
		{errors.New("plain"), Kind("")},
		{nil, Kind("")},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.expected {
			t.Errorf("KindOf(%v) = %q, expected %q", tt.err, got, tt.expected)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", &UnknownCameraError{CameraID: "CAM99"})
	if got := KindOf(err); got != KindUnknownCamera {
		t.Errorf("KindOf(wrapped) = %q, expected %q", got, KindUnknownCamera)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("file corrupt")
	err := &InferenceError{Reason: "failed to decode image", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("InferenceError should unwrap to its cause")
	}

	cfg := &ConfigError{Source: "rois.csv", Reason: "open", Err: cause}
	if !errors.Is(cfg, cause) {
		t.Error("ConfigError should unwrap to its cause")
	}
}
