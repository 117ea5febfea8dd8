package content

import (
	"errors"
	"fmt"
)

// Error taxonomy for the pipeline. FetchError and DecodeError wrap a cause;
// the rest are sentinels checked with errors.Is.
var (
	// ErrSizeExceeded guards Office decoding before any decode attempt.
	ErrSizeExceeded = errors.New("file exceeds size limit")

	// ErrFormatUnsupported marks formats that can never be decoded
	// (legacy binary .ppt, unknown extensions).
	ErrFormatUnsupported = errors.New("format not supported")

	// ErrNoData marks structurally valid input with nothing to show
	// (zero sheets, empty range, no slides).
	ErrNoData = errors.New("no data")
)

// FetchError is a terminal network or HTTP failure, surfaced only after the
// retry bound is exhausted. Status is zero for network-level failures.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError is a corrupt or malformed binary payload. The resolver
// converts it into a Download fallback instead of a hard failure.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
