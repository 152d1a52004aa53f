package service

import (
	"errors"
	"fmt"
)

// ErrEmptyPlate rejects detections whose OCR text normalizes to nothing.
// Nothing is persisted for such events.
var ErrEmptyPlate = errors.New("plate text is empty")

// Processing step names reported by ProcessingError.
const (
	StepResolveSession  = "resolve_session"
	StepStoreImage      = "store_image"
	StepResolveOwner    = "resolve_owner"
	StepAppendDetection = "append_detection"
)

// ProcessingError reports which step of detection processing failed. Steps
// already committed before the failure are not rolled back.
type ProcessingError struct {
	Step string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("detection processing failed at %s: %v", e.Step, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
