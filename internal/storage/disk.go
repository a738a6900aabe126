// Package storage stores uploaded attachment bytes on disk and hands back
// descriptors with a retrieval URL. It knows nothing about chats or
// messages; the caller links descriptors to messages afterwards.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/domain"
)

// ErrNotFound is returned when a stored file does not exist or the name
// tries to escape the store directory.
var ErrNotFound = errors.New("stored file not found")

// DiskStore writes uploads under a single directory with generated names,
// so retrieval paths are deterministic from the descriptor's FileName.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save streams r to disk and returns the attachment descriptor. The stored
// name is a fresh uuid plus the original extension; the original name only
// survives inside the descriptor.
func (s *DiskStore) Save(originalName, mimeType string, r io.Reader) (*domain.Attachment, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	fileName := uuid.NewString() + ext

	f, err := os.Create(filepath.Join(s.dir, fileName))
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("writing file: %w", err)
	}

	return &domain.Attachment{
		FileName:     fileName,
		OriginalName: filepath.Base(originalName),
		MimeType:     mimeType,
		Size:         size,
		URL:          s.baseURL + "/" + fileName,
	}, nil
}

// Path resolves a stored file name to its on-disk path. Names that point
// outside the store directory are treated as missing.
func (s *DiskStore) Path(fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) {
		return "", ErrNotFound
	}
	path := filepath.Join(s.dir, fileName)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}
