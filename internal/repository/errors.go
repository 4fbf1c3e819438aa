package repository

import "errors"

var (
	// ErrClipNotFound is returned when a clip UUID has no matching row.
	ErrClipNotFound = errors.New("clip not found")
	// ErrSettingsInvalid is returned when the persisted settings row fails schema validation.
	ErrSettingsInvalid = errors.New("settings row invalid, reinitialized to defaults")
)
