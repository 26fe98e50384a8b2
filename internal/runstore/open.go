// Package runstore opens the configured projection run store.
package runstore

import (
	"context"
	"fmt"
	"strings"

	"vdypcore/internal/infra/persistence/memory"
	"vdypcore/internal/infra/persistence/postgres"
	"vdypcore/internal/infra/persistence/sqlite"
	"vdypcore/pkg/domain"
)

// Driver names a run store backend.
type Driver string

const (
	DriverNone     Driver = "none"
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config selects the backend and its location.
type Config struct {
	Driver      Driver
	SQLitePath  string
	PostgresDSN string
}

// ParseDriver maps a configured name to a Driver; "" means DriverNone.
func ParseDriver(name string) (Driver, error) {
	d := Driver(strings.ToLower(strings.TrimSpace(name)))
	switch d {
	case "":
		return DriverNone, nil
	case DriverNone, DriverMemory, DriverSQLite, DriverPostgres:
		return d, nil
	}
	return "", fmt.Errorf("unknown storage driver %q (want none, memory, sqlite or postgres)", name)
}

// Open returns the run store for cfg, or nil when storage is disabled.
func Open(ctx context.Context, cfg Config) (domain.RunStore, error) {
	driver, err := ParseDriver(string(cfg.Driver))
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite:
		s, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, nil
	}
}
