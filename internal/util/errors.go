package util

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrInvalidActivityType   = errors.New("invalid activity type")
	ErrCatalogEmpty          = errors.New("badge catalog is empty")
	ErrInvalidBadgeCriterion = errors.New("badge must define exactly one criterion")
	ErrBadgeNotFound         = errors.New("badge not found")
	ErrUnsupportedUpload     = errors.New("unsupported upload")
	ErrEmptyPrompt           = errors.New("prompt is empty")
	ErrFileTooLarge          = errors.New("file too large")
	ErrInvalidPoints         = errors.New("points must not be zero")
)
