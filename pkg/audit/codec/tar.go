package codec

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/archivist/pkg/audit"
)

// File is one regular file extracted from a bundle.
type File struct {
	Name    string
	ModTime time.Time
	Data    []byte
}

// Bundle packs the files at paths into a tar container. Entries are named by
// the base name of each path.
func Bundle(paths []string) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for _, path := range paths {
		if err := addFile(tw, path); err != nil {
			tw.Close()
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, audit.NewFormatError("tar", err)
	}
	return buf.Bytes(), nil
}

func addFile(tw *tar.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return audit.NewIOError(path, "stat", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return audit.NewIOError(path, "read", err)
	}

	header := &tar.Header{
		Name:     filepath.Base(path),
		Size:     int64(len(data)),
		Mode:     0o640,
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return audit.NewFormatError("tar", err)
	}
	if _, err := tw.Write(data); err != nil {
		return audit.NewFormatError("tar", err)
	}
	return nil
}

// Unbundle extracts the regular files of a tar container in order.
// Directory entries are skipped.
func Unbundle(data []byte) ([]File, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	var files []File

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, audit.NewFormatError("tar", err)
		}

		if header.Typeflag == tar.TypeDir {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, audit.NewFormatError("tar", err)
		}
		files = append(files, File{
			Name:    header.Name,
			ModTime: header.ModTime,
			Data:    content,
		})
	}

	return files, nil
}
