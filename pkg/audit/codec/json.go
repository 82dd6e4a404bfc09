package codec

import (
	"errors"
	"time"

	"github.com/goccy/go-json"

	"mercator-hq/archivist/pkg/audit"
)

// FormatVersion is written into every archive's metadata.
const FormatVersion = "1.0"

// ArchiveType distinguishes daily and monthly archives.
type ArchiveType string

const (
	ArchiveDaily   ArchiveType = "DAILY"
	ArchiveMonthly ArchiveType = "MONTHLY"
)

// Metadata describes the contents of one archive file. It is computed once
// when the archive is created and never rewritten.
type Metadata struct {
	ArchiveType   ArchiveType `json:"archiveType"`
	CreatedAt     time.Time   `json:"createdAt"`
	StartDate     time.Time   `json:"startDate"`
	EndDate       time.Time   `json:"endDate"`
	RecordCount   int         `json:"recordCount"`
	FileSizeBytes int64       `json:"fileSize"`
	Checksum      string      `json:"checksum"`
	Version       string      `json:"version"`
}

// envelope is the JSON document stored inside a daily archive.
type envelope struct {
	Metadata *Metadata      `json:"metadata"`
	Logs     json.RawMessage `json:"logs"`
}

// ErrMissingSection is wrapped in a FormatError when an envelope lacks its
// metadata or logs section.
var ErrMissingSection = errors.New("envelope section missing")

// Serialize encodes records as a JSON array. The encoding is deterministic:
// the same records always produce the same bytes.
func Serialize(records []*audit.Record) ([]byte, error) {
	if records == nil {
		records = []*audit.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, audit.NewFormatError("records", err)
	}
	return data, nil
}

// Deserialize decodes a JSON array of records.
func Deserialize(data []byte) ([]*audit.Record, error) {
	var records []*audit.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, audit.NewFormatError("records", err)
	}
	if records == nil {
		records = []*audit.Record{}
	}
	return records, nil
}

// EncodeEnvelope builds the {metadata, logs} document. logs must be the
// output of Serialize.
func EncodeEnvelope(meta *Metadata, logs []byte) ([]byte, error) {
	data, err := json.Marshal(&envelope{Metadata: meta, Logs: json.RawMessage(logs)})
	if err != nil {
		return nil, audit.NewFormatError("envelope", err)
	}
	return data, nil
}

// DecodeEnvelope parses an envelope and returns its metadata and the raw
// bytes of the logs section. A FormatError wrapping ErrMissingSection is
// returned when either section is absent.
func DecodeEnvelope(data []byte) (*Metadata, []byte, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, audit.NewFormatError("envelope", err)
	}
	if env.Metadata == nil {
		return nil, nil, audit.NewFormatError("envelope.metadata", ErrMissingSection)
	}
	if len(env.Logs) == 0 || string(env.Logs) == "null" {
		return nil, nil, audit.NewFormatError("envelope.logs", ErrMissingSection)
	}
	return env.Metadata, []byte(env.Logs), nil
}

// EncodeMetadata encodes metadata on its own, as stored in monthly bundles.
func EncodeMetadata(meta *Metadata) ([]byte, error) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, audit.NewFormatError("metadata", err)
	}
	return data, nil
}

// DecodeMetadata decodes a standalone metadata document.
func DecodeMetadata(data []byte) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, audit.NewFormatError("metadata", err)
	}
	return &meta, nil
}
