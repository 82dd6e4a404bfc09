// Package archive implements the archive store: durable, checksummed daily
// and monthly archive files for audit records that have aged out of the
// primary store.
//
// # Layout
//
// All files live under Config.BaseDir:
//
//	daily/{YYYY}/{MM}/audit_log_{YYYY-MM-DD}.json.gz   gzip({metadata, logs})
//	monthly/{YYYY}/audit_log_{YYYYMM}.tar.gz           gzip(tar(daily files + metadata.json))
//
// A daily file's metadata carries the SHA-256 of the serialized logs array;
// VerifyArchive recomputes it over the stored bytes. A monthly file bundles
// only daily files that verified at bundling time, and its checksum covers
// the concatenated raw bytes of those files.
//
// # Lifecycle
//
//	absent -> written -> verified | corrupt -> bundled (optional) -> deleted
//
// Files are never modified in place. Writes go to a temporary file in the
// target directory and are renamed into place, and writers and deleters of
// the same path are serialized with a per-path lock.
//
// # Retention
//
// DeleteOldArchives refuses cutoffs newer than now minus Config.RetentionFloor
// and refuses to run while the primary store still holds records older than
// the cutoff (see WithCounter).
package archive
