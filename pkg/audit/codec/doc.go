// Package codec implements the archive wire format: deterministic JSON
// serialization of audit records, the {metadata, logs} envelope, SHA-256
// checksums, gzip compression and tar bundling.
//
// All functions are pure and safe for concurrent use. Failures are reported
// with the typed errors from package audit: FormatError for malformed JSON or
// tar content, CompressionError for corrupt gzip streams, and IOError for
// filesystem failures while bundling.
//
// # Daily archive layout
//
//	gzip( {"metadata": {...}, "logs": [record, ...]} )
//
// The checksum in the metadata is the SHA-256 of the serialized "logs" array
// exactly as written, so verification works on the raw bytes rather than on a
// re-encoding.
package codec
