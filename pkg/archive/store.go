package archive

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/audit/codec"
)

// Observer receives archive lifecycle events, typically to update metrics.
type Observer interface {
	ArchiveCreated(archiveType codec.ArchiveType, count int)
	ArchivesDeleted(count int)
	ArchiveVerified(valid bool)
}

type nopObserver struct{}

func (nopObserver) ArchiveCreated(codec.ArchiveType, int) {}
func (nopObserver) ArchivesDeleted(int)                   {}
func (nopObserver) ArchiveVerified(bool)                  {}

// Store owns every archive file under its base directory. No other
// component reads or writes archive bytes directly.
type Store struct {
	config   *Config
	counter  audit.Counter
	observer Observer
	now      func() time.Time
	locks    *pathLocks
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCounter installs the primary-store collaborator used by the
// data-loss guard in DeleteOldArchives.
func WithCounter(c audit.Counter) Option {
	return func(s *Store) { s.counter = c }
}

// WithObserver installs an observer for archive events.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an archive store rooted at cfg.BaseDir.
func NewStore(cfg *Config, opts ...Option) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Store{
		config:   cfg.withDefaults(),
		observer: nopObserver{},
		now:      time.Now,
		locks:    newPathLocks(),
		logger:   slog.Default().With("component", "archive.store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseDir returns the root directory of the archive tree.
func (s *Store) BaseDir() string {
	return s.config.BaseDir
}

// RetentionFloor returns the minimum age of a deletable archive.
func (s *Store) RetentionFloor() time.Duration {
	return s.config.RetentionFloor
}

// Location returns the time zone that defines archive days.
func (s *Store) Location() *time.Location {
	return s.config.Location
}

// CheckWritable verifies that the base directory can be created and written.
func (s *Store) CheckWritable() error {
	if err := os.MkdirAll(s.config.BaseDir, 0o755); err != nil {
		return audit.NewIOError(s.config.BaseDir, "mkdir", err)
	}
	f, err := os.CreateTemp(s.config.BaseDir, ".probe-*")
	if err != nil {
		return audit.NewIOError(s.config.BaseDir, "write", err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

// writeFile atomically replaces path with data: it writes a temporary file
// in the same directory and renames it into place.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return audit.NewIOError(dir, "mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return audit.NewIOError(path, "create", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return audit.NewIOError(path, "write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return audit.NewIOError(path, "sync", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return audit.NewIOError(path, "close", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return audit.NewIOError(path, "chmod", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return audit.NewIOError(path, "rename", err)
	}
	return nil
}

// readDaily reads a daily archive and returns its metadata, the raw bytes
// of its logs section and the raw (compressed) file bytes.
func readDaily(path string) (*Metadata, []byte, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, audit.NewIOError(path, "read", err)
	}
	plain, err := codec.Decompress(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	meta, logs, err := codec.DecodeEnvelope(plain)
	if err != nil {
		return nil, nil, nil, err
	}
	return meta, logs, raw, nil
}

// readMonthly reads a monthly archive and returns its metadata and the
// daily archive files it bundles.
func readMonthly(path string) (*Metadata, []codec.File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, audit.NewIOError(path, "read", err)
	}
	tarBytes, err := codec.Decompress(raw)
	if err != nil {
		return nil, nil, err
	}
	files, err := codec.Unbundle(tarBytes)
	if err != nil {
		return nil, nil, err
	}

	var meta *Metadata
	dailies := make([]codec.File, 0, len(files))
	for _, f := range files {
		if f.Name == metadataFile {
			meta, err = codec.DecodeMetadata(f.Data)
			if err != nil {
				return nil, nil, err
			}
			continue
		}
		dailies = append(dailies, f)
	}
	if meta == nil {
		return nil, nil, audit.NewFormatError(metadataFile, codec.ErrMissingSection)
	}
	return meta, dailies, nil
}

// walkArchives calls fn for every regular file under base/sub whose name
// ends in suffix, in lexical (and therefore chronological) order. A missing
// tree is not an error.
func walkArchives(base, sub, suffix string, fn func(path string, d fs.DirEntry) error) error {
	root := filepath.Join(base, sub)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".gz" || !hasSuffix(d.Name(), suffix) {
			return nil
		}
		return fn(path, d)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if err != nil {
		return audit.NewIOError(root, "walk", err)
	}
	return nil
}

func hasSuffix(name, suffix string) bool {
	return len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix
}
