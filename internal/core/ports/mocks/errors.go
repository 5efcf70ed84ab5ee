package mocks

import "errors"

var (
	// ErrStoreDown is a canned storage failure for tests.
	ErrStoreDown = errors.New("store down")

	// ErrPlatformDown is a canned platform failure for tests.
	ErrPlatformDown = errors.New("platform down")
)
