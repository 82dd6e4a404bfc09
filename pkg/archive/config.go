package archive

import (
	"time"

	"mercator-hq/archivist/pkg/audit/codec"
)

// Metadata describes one archive file.
type Metadata = codec.Metadata

// Config contains configuration for the archive store.
type Config struct {
	// BaseDir is the root of the archive tree.
	// Default: "archives"
	BaseDir string

	// RetentionFloor is the minimum age of any archive that may be deleted.
	// Default: 365 days
	RetentionFloor time.Duration

	// MaxSearchWindow bounds the length of a SearchArchives window.
	// Default: 365 days
	MaxSearchWindow time.Duration

	// AssumedRecordSize is the average uncompressed record size in bytes used
	// to estimate the compression ratio.
	// Default: 200
	AssumedRecordSize int

	// Location is the time zone that defines calendar days.
	// Default: UTC
	Location *time.Location
}

// DefaultConfig returns the default archive configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseDir:           "archives",
		RetentionFloor:    365 * 24 * time.Hour,
		MaxSearchWindow:   365 * 24 * time.Hour,
		AssumedRecordSize: 200,
		Location:          time.UTC,
	}
}

func (c *Config) withDefaults() *Config {
	out := *c
	def := DefaultConfig()
	if out.BaseDir == "" {
		out.BaseDir = def.BaseDir
	}
	if out.RetentionFloor <= 0 {
		out.RetentionFloor = def.RetentionFloor
	}
	if out.MaxSearchWindow <= 0 {
		out.MaxSearchWindow = def.MaxSearchWindow
	}
	if out.AssumedRecordSize <= 0 {
		out.AssumedRecordSize = def.AssumedRecordSize
	}
	if out.Location == nil {
		out.Location = def.Location
	}
	return &out
}
