// Archivist keeps an audit trail within its retention windows.
//
// Records older than the primary retention period move out of the primary
// store into compressed daily archives, daily archives are bundled into
// monthly tar archives, and archives older than the cleanup retention are
// deleted. Every archive carries a SHA-256 checksum that verify recomputes.
//
// Usage:
//
//	# Run the scheduler with the admin listener
//	archivist run --config archivist.yaml
//
//	# Archive a single day or a range of days
//	archivist archive daily --date 2026-10-18
//	archivist archive daily --from 2026-10-01 --to 2026-10-18
//
//	# Bundle last month and verify it
//	archivist archive monthly --month 2026-09
//	archivist verify --month 2026-09
//
//	# Search archived records
//	archivist search --start 2026-09-01 --end 2026-09-30 --type USER_DELETED -o csv
package main

func main() {
	Execute()
}
