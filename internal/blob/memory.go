package blob

import (
	memorystore "vdypcore/internal/infra/blob/memory"
)

// NewMemory returns an in-process archive.
func NewMemory() Store { return memorystore.New() }
