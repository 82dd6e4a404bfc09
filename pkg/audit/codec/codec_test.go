package codec

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/archivist/pkg/audit"
)

func sampleRecords(t *testing.T) []*audit.Record {
	t.Helper()

	base := time.Date(2025, 4, 16, 9, 30, 0, 0, time.UTC)
	var records []*audit.Record
	for i, eventType := range []string{"USER_LOGIN", "USER_LOGOUT", "DATA_EXPORTED"} {
		r, err := audit.NewRecord(eventType,
			audit.WithID(strings.Repeat(string(rune('a'+i)), 8)),
			audit.WithSeverity(audit.SeverityLow),
			audit.WithUser("alice"),
			audit.WithCreatedAt(base.Add(time.Duration(i)*time.Minute)),
		)
		if err != nil {
			t.Fatalf("NewRecord() error = %v", err)
		}
		records = append(records, r)
	}
	return records
}

func TestSerialize_RoundTrip(t *testing.T) {
	records := sampleRecords(t)

	data, err := Serialize(records)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	decoded, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}

	if len(decoded) != len(records) {
		t.Fatalf("Deserialize() returned %d records, want %d", len(decoded), len(records))
	}
	for i := range records {
		if !records[i].Equal(decoded[i]) {
			t.Errorf("record %d = %+v, want %+v", i, decoded[i], records[i])
		}
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	records := sampleRecords(t)

	a, err := Serialize(records)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	b, err := Serialize(records)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Error("Serialize() produced different bytes for the same input")
	}
}

func TestSerialize_Empty(t *testing.T) {
	data, err := Serialize(nil)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Serialize(nil) = %s, want []", data)
	}
}

func TestDeserialize_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "truncated", input: `[{"eventType":"USER_LOGIN"`},
		{name: "not an array", input: `{"eventType":"USER_LOGIN"}`},
		{name: "garbage", input: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize([]byte(tt.input))
			var fe *audit.FormatError
			if !errors.As(err, &fe) {
				t.Errorf("Deserialize() error = %v, want FormatError", err)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("hello world"))
	if a != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("Checksum() = %s", a)
	}
	if Checksum([]byte("hello world")) != a {
		t.Error("Checksum() is not deterministic")
	}
	if Checksum([]byte("hello world!")) == a {
		t.Error("Checksum() collided for different input")
	}

	if !VerifyChecksum([]byte("hello world"), a) {
		t.Error("VerifyChecksum() = false for matching data")
	}
	if VerifyChecksum([]byte("hello"), a) {
		t.Error("VerifyChecksum() = true for different data")
	}
	if VerifyChecksum([]byte("hello world"), strings.ToUpper(a)) {
		t.Error("VerifyChecksum() must be an exact string match")
	}
}

func TestCompress_RoundTrip(t *testing.T) {
	data, err := Serialize(sampleRecords(t))
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	compressed, err := Compress(data)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("Decompress(Compress(x)) != x")
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	compressed, err := Compress([]byte(strings.Repeat("audit ", 100)))
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "not gzip", input: []byte("plain text")},
		{name: "truncated", input: compressed[:len(compressed)/2]},
		{name: "empty", input: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decompress(tt.input)
			var ce *audit.CompressionError
			if !errors.As(err, &ce) {
				t.Errorf("Decompress() error = %v, want CompressionError", err)
			}
		})
	}
}

func TestEnvelope_RoundTrip(t *testing.T) {
	logs, err := Serialize(sampleRecords(t))
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	meta := &Metadata{
		ArchiveType:   ArchiveDaily,
		CreatedAt:     time.Date(2025, 4, 17, 1, 0, 0, 0, time.UTC),
		StartDate:     time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 4, 16, 23, 59, 59, 999_000_000, time.UTC),
		RecordCount:   3,
		FileSizeBytes: int64(len(logs)),
		Checksum:      Checksum(logs),
		Version:       FormatVersion,
	}

	data, err := EncodeEnvelope(meta, logs)
	if err != nil {
		t.Fatalf("EncodeEnvelope() error = %v", err)
	}

	gotMeta, gotLogs, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}

	if !bytes.Equal(gotLogs, logs) {
		t.Error("logs section was not preserved byte for byte")
	}
	if !VerifyChecksum(gotLogs, gotMeta.Checksum) {
		t.Error("checksum over decoded logs does not match metadata")
	}
	if gotMeta.ArchiveType != ArchiveDaily || gotMeta.RecordCount != 3 || gotMeta.Version != FormatVersion {
		t.Errorf("metadata = %+v", gotMeta)
	}
	if !gotMeta.EndDate.Equal(meta.EndDate) {
		t.Errorf("EndDate = %v, want %v", gotMeta.EndDate, meta.EndDate)
	}
}

func TestDecodeEnvelope_MissingSection(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "no metadata", input: `{"logs":[]}`},
		{name: "no logs", input: `{"metadata":{"archiveType":"DAILY"}}`},
		{name: "null logs", input: `{"metadata":{"archiveType":"DAILY"},"logs":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeEnvelope([]byte(tt.input))
			if !errors.Is(err, ErrMissingSection) {
				t.Errorf("DecodeEnvelope() error = %v, want ErrMissingSection", err)
			}
		})
	}
}

func TestBundle_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		filepath.Join(dir, "a.json.gz"):     "first",
		filepath.Join(sub, "b.json.gz"):     "second",
		filepath.Join(dir, "metadata.json"): `{"archiveType":"MONTHLY"}`,
	}
	paths := []string{
		filepath.Join(dir, "a.json.gz"),
		filepath.Join(sub, "b.json.gz"),
		filepath.Join(dir, "metadata.json"),
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tarBytes, err := Bundle(paths)
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	out, err := Unbundle(tarBytes)
	if err != nil {
		t.Fatalf("Unbundle() error = %v", err)
	}
	if len(out) != len(paths) {
		t.Fatalf("Unbundle() returned %d files, want %d", len(out), len(paths))
	}
	for i, f := range out {
		if f.Name != filepath.Base(paths[i]) {
			t.Errorf("file %d name = %s, want %s", i, f.Name, filepath.Base(paths[i]))
		}
		if string(f.Data) != files[paths[i]] {
			t.Errorf("file %s content = %q", f.Name, f.Data)
		}
	}
}

func TestBundle_MissingFile(t *testing.T) {
	_, err := Bundle([]string{filepath.Join(t.TempDir(), "missing.json.gz")})
	var ioErr *audit.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("Bundle() error = %v, want IOError", err)
	}
}

func TestUnbundle_Malformed(t *testing.T) {
	_, err := Unbundle(bytes.Repeat([]byte{0xff}, 1024))
	var fe *audit.FormatError
	if !errors.As(err, &fe) {
		t.Errorf("Unbundle() error = %v, want FormatError", err)
	}
}

func TestChecksumAll_MatchesConcatenation(t *testing.T) {
	a, b := []byte("first day"), []byte("second day")
	want := Checksum(append(append([]byte{}, a...), b...))

	if got := ChecksumAll(a, b); got != want {
		t.Errorf("ChecksumAll() = %s, want %s", got, want)
	}
	if ChecksumAll() != Checksum(nil) {
		t.Error("ChecksumAll() of nothing should equal Checksum(nil)")
	}
}
