// Package blob selects and constructs blob stores. It is the only package
// allowed to import the drivers under internal/infra/blob; callers depend on
// the re-exported Store interface.
package blob

import (
	"context"
	"fmt"
	"strings"

	"pathwaycore/internal/blob/core"
	"pathwaycore/internal/infra/blob/fs"
	memorystore "pathwaycore/internal/infra/blob/memory"
	infraS3 "pathwaycore/internal/infra/blob/s3"
)

type (
	// Driver names a blob backend.
	Driver = core.Driver
	// PutOptions tune a blob write.
	PutOptions = core.PutOptions
	// Info describes a stored blob.
	Info = core.Info
	// Store is implemented by every backend.
	Store = core.Store
	// S3Config configures the S3 driver.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound = core.ErrNotFound
	ErrExists   = core.ErrExists
)

// Config selects and configures a blob backend.
type Config struct {
	Driver Driver   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// DefaultConfig is the local filesystem store under fs.DefaultRoot.
func DefaultConfig() Config {
	return Config{Driver: DriverFilesystem, FSRoot: fs.DefaultRoot}
}

// ParseDriver validates a driver name; empty selects the filesystem driver.
func ParseDriver(name string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(name))); d {
	case "":
		return DriverFilesystem, nil
	case DriverFilesystem, DriverS3, DriverMemory:
		return d, nil
	default:
		return "", fmt.Errorf("unknown blob driver %s", name)
	}
}

// Open constructs the Store selected by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver, err := ParseDriver(string(cfg.Driver))
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return NewFilesystem(cfg.FSRoot)
	}
}

// NewFilesystem opens a directory-backed Store.
func NewFilesystem(root string) (Store, error) {
	s, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	s, err := infraS3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMockS3ForTests returns an S3 Store served by an in-process fake.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
