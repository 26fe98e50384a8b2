// Package blob is the run archive: it re-exports the core storage contract
// and opens the configured backend.
package blob

import (
	"vdypcore/internal/blob/core"
)

type (
	// Driver identifies an archive backend.
	Driver = core.Driver
	// PutOptions configures an archive write.
	PutOptions = core.PutOptions
	// Info describes an archived object.
	Info = core.Info
	// Store is the interface archive backends implement.
	Store = core.Store
)

const (
	// DriverNone disables archiving.
	DriverNone Driver = "none"
	// DriverFilesystem is the local directory driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-process driver.
	DriverMemory = core.DriverMemory
)

var (
	ErrExists     = core.ErrExists
	ErrNotFound   = core.ErrNotFound
	ErrInvalidKey = core.ErrInvalidKey
)
