// Package service is the audit surface consumed by the web and API layers.
//
// AuditService combines the primary store, the read-through record cache
// and the archive store: point lookups go through the cache, searches hit
// the primary store, and ArchiveOldLogs moves aged records from the primary
// store into daily archives.
package service
