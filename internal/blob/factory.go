package blob

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures the archive backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// ParseDriver maps a configured name to a Driver. The empty string means
// DriverNone.
func ParseDriver(name string) (Driver, error) {
	d := Driver(strings.ToLower(strings.TrimSpace(name)))
	switch d {
	case "":
		return DriverNone, nil
	case DriverNone, DriverMemory, DriverFilesystem, DriverS3:
		return d, nil
	}
	return "", fmt.Errorf("unknown blob driver %q (want none, memory, fs or s3)", name)
}

// Open returns the archive for cfg. A nil Store with a nil error means
// archiving is disabled.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver, err := ParseDriver(string(cfg.Driver))
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverFilesystem:
		root := cfg.FSRoot
		if root == "" {
			root = "./archive"
		}
		return NewFilesystem(root)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, nil
	}
}
