package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an uploaded stream exceeds the configured limit.
var ErrTooLarge = errors.New("file exceeds maximum size")

// LocalStorage persists uploaded video files on disk and addresses them by a
// public base URL that the router serves statically.
type LocalStorage struct {
	baseDir   string
	publicURL string
	maxBytes  int64
	now       func() time.Time
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, publicBaseURL string, maxBytes int64) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./media/videos"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStorage{
		baseDir:   baseDir,
		publicURL: strings.TrimRight(publicBaseURL, "/"),
		maxBytes:  maxBytes,
		now:       time.Now,
	}, nil
}

// Dir returns the directory files are written to.
func (s *LocalStorage) Dir() string {
	return s.baseDir
}

// Upload stores r under a fresh collision-free name derived from originalName
// and returns the public URL of the stored file.
func (s *LocalStorage) Upload(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := s.objectName(originalName)
	if err := s.SaveStream(name, r); err != nil {
		return "", err
	}
	return s.PublicURL(name), nil
}

// SaveStream copies from reader into the target file, enforcing the size limit.
// A partially written file is removed on failure.
func (s *LocalStorage) SaveStream(filename string, r io.Reader) (err error) {
	path := s.resolve(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare media directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("close media file: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, err := io.Copy(file, src)
	if err != nil {
		return fmt.Errorf("write media stream: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("write media stream: empty file")
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		return ErrTooLarge
	}
	return nil
}

// PublicURL returns the URL the stored file is reachable at.
func (s *LocalStorage) PublicURL(filename string) string {
	return s.publicURL + "/" + url.PathEscape(filename)
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	if err := os.Remove(s.resolve(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

func (s *LocalStorage) objectName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("%d-%s%s", s.now().UnixNano(), uuid.NewString(), ext)
}

func (s *LocalStorage) resolve(filename string) string {
	return filepath.Join(s.baseDir, filepath.Base(filename))
}
