package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Extraction and queue errors
	ErrExtraction       = fmt.Errorf("extraction failed")
	ErrWrongEntryType   = fmt.Errorf("wrong entry type")
	ErrInsufficientData = fmt.Errorf("insufficient duration data")
	ErrEmptyQueue       = fmt.Errorf("queue is empty")
	ErrIndexOutOfRange  = fmt.Errorf("index out of range")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

// WrongEntryTypeError reports a locator that resolved to a playlist-shaped
// result when a single item was expected. UseLocator carries the corrected
// locator, when one could be determined, so the caller can re-dispatch to
// a bulk import.
type WrongEntryTypeError struct {
	IsPlaylist bool
	UseLocator string
}

func (e *WrongEntryTypeError) Error() string {
	if e.UseLocator != "" {
		return fmt.Sprintf("wrong entry type: locator is a playlist, use %s with a bulk import", e.UseLocator)
	}
	return "wrong entry type: locator is a playlist"
}

func (e *WrongEntryTypeError) Unwrap() error { return ErrWrongEntryType }
