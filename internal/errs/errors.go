package errs

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for transport mapping and logging.
type Kind string

const (
	KindConfig          Kind = "config"
	KindUnknownCamera   Kind = "unknown_camera"
	KindInference       Kind = "inference"
	KindDuplicateRecord Kind = "duplicate_record"
)

// ConfigError reports malformed ROI or camera configuration. It is
// fatal at startup: the service must not serve requests with a
// partially loaded configuration.
type ConfigError struct {
	Source string // file or table the bad entry came from
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Source, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Kind() Kind { return KindConfig }

// UnknownCameraError reports a request for a camera id absent from the
// registry. Request-scoped, never fatal.
type UnknownCameraError struct {
	CameraID string
}

func (e *UnknownCameraError) Error() string {
	return fmt.Sprintf("unknown camera %q", e.CameraID)
}

func (e *UnknownCameraError) Kind() Kind { return KindUnknownCamera }

// InferenceError reports a detector failure, timeout, or undecodable
// image. It must propagate instead of being recorded as a zero count:
// "no vehicles observed" and "observation failed" are different facts.
type InferenceError struct {
	Reason string
	Err    error
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference: %s: %v", e.Reason, e.Err)
	}
	return "inference: " + e.Reason
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) Kind() Kind { return KindInference }

// DuplicateRecordError reports an attempt to record a second count for
// the same (camera, timestamp) pair. The store policy is reject: the
// first record wins and the caller may retry with a corrected
// timestamp.
type DuplicateRecordError struct {
	CameraID  string
	Timestamp time.Time
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("duplicate record for camera %q at %s", e.CameraID, e.Timestamp.Format(time.RFC3339))
}

func (e *DuplicateRecordError) Kind() Kind { return KindDuplicateRecord }

// Kinder is implemented by all errors in this package.
type Kinder interface {
	Kind() Kind
}

// KindOf returns the kind of err, or "" for untyped errors.
func KindOf(err error) Kind {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}
