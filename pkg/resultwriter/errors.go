package resultwriter

import "errors"

var (
	errNotFinite        = errors.New("value is not finite")
	errCoverageOverflow = errors.New("covered lines exceed total lines")
)
