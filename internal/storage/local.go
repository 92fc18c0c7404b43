package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const chunkSize = 64 * 1024

// ErrTooLarge is returned when an upload exceeds the configured cap
var ErrTooLarge = errors.New("file too large")

// LocalStorage keeps uploaded recordings on the local filesystem
type LocalStorage struct {
	dir      string
	maxBytes int64
}

// NewLocalStorage creates the upload directory if needed
func NewLocalStorage(dir string, maxBytes int64) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the upload directory
func (ls *LocalStorage) Dir() string {
	return ls.dir
}

// MaxBytes is the per-file upload cap
func (ls *LocalStorage) MaxBytes() int64 {
	return ls.maxBytes
}

// FileKey names an upload for a user; ext includes the leading dot
func FileKey(userID, ext string) string {
	return fmt.Sprintf("%s_%s%s", userID, hexID(), ext)
}

func hexID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}

// Save streams r to disk in chunks and returns the number of bytes written.
// The partial file is removed when the cap is exceeded or the copy fails.
func (ls *LocalStorage) Save(fileKey string, r io.Reader) (int64, error) {
	path := ls.Path(fileKey)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create upload: %w", err)
	}

	written, err := ls.copyCapped(f, r)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close upload: %w", closeErr)
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return written, nil
}

func (ls *LocalStorage) copyCapped(w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			written += int64(n)
			if ls.maxBytes > 0 && written > ls.maxBytes {
				return written, ErrTooLarge
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write upload: %w", err)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read upload: %w", readErr)
		}
	}
}

// Path resolves a file key inside the upload directory
func (ls *LocalStorage) Path(fileKey string) string {
	return filepath.Join(ls.dir, filepath.Base(fileKey))
}

// Delete removes an upload; a missing file is not an error
func (ls *LocalStorage) Delete(fileKey string) error {
	if err := os.Remove(ls.Path(fileKey)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}
