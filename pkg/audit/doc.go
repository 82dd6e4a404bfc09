// Package audit defines the audit record model shared by the archive core:
// the Record value, severities, the event-kind registry used to map free-form
// event names onto typed events, the error taxonomy, and the primary Store
// interface.
//
// # Records
//
// Records are built with NewRecord, which rejects blank event types and
// applies defaults:
//
//	rec, err := audit.NewRecord("USER_LOGIN",
//	    audit.WithSeverity(audit.SeverityLow),
//	    audit.WithUser("user-123"),
//	)
//
// A record has no ID until the primary store persists it.
//
// # Errors
//
// The archive core reports failures with typed errors that callers match with
// errors.As:
//
//   - FormatError: malformed JSON or tar content
//   - CompressionError: corrupt gzip stream
//   - IOError: filesystem failures
//   - ValidationError: invalid input, retention floor and data-loss guard
//   - StorageError: primary store failures
//
// A checksum mismatch is not an error; it is reported as a boolean by
// archive verification.
package audit
