package storage

import "errors"

const (
	ErrExecuteStatement = "failed to execute statement"
	ErrExecuteQuery     = "failed to execute query"
	ErrScanData         = "failed to scan data"
)

var ErrNotFound = errors.New("storage: not found")
