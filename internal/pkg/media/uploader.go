package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
)

const (
	MaxCoverSize = 10 << 20
	MaxFileSize  = 100 << 20
	sniffLen     = 512
)

// Uploader validates multipart uploads and writes them to a Store.
type Uploader struct {
	store         Store
	coverMaxWidth int
	now           func() time.Time
}

func NewUploader(store Store, coverMaxWidth int) *Uploader {
	return &Uploader{store: store, coverMaxWidth: coverMaxWidth, now: time.Now}
}

// Store returns the underlying store.
func (u *Uploader) Store() Store {
	return u.store
}

// SaveCover validates, resizes and stores a cover image. Returns its key.
func (u *Uploader) SaveCover(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxCoverSize {
		return "", fmt.Errorf("cover exceeds %d MB", MaxCoverSize>>20)
	}
	raw, err := readAll(fh)
	if err != nil {
		return "", err
	}
	if _, err := ValidateImageBySniff(fh.Filename, head(raw)); err != nil {
		return "", err
	}

	processed, err := ProcessCover(bytes.NewReader(raw), u.coverMaxWidth)
	if err != nil {
		return "", err
	}

	key := ObjectKey("covers", ".jpg", u.now())
	if err := u.store.Save(ctx, key, bytes.NewReader(processed), int64(len(processed)), "image/jpeg"); err != nil {
		return "", err
	}
	return key, nil
}

// SaveBookFile validates and stores a PDF or EPUB. Returns its key.
func (u *Uploader) SaveBookFile(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxFileSize {
		return "", fmt.Errorf("file exceeds %d MB", MaxFileSize>>20)
	}
	raw, err := readAll(fh)
	if err != nil {
		return "", err
	}
	mime, err := ValidateDocument(fh.Filename, head(raw))
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	key := ObjectKey("books", ext, u.now())
	if err := u.store.Save(ctx, key, bytes.NewReader(raw), int64(len(raw)), mime); err != nil {
		return "", err
	}
	return key, nil
}

// Remove deletes key if set; errors are returned for logging only.
func (u *Uploader) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return u.store.Delete(ctx, key)
}

// URL returns the public address of key, or "" for no key.
func (u *Uploader) URL(key string) string {
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	return u.store.URL(key)
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func head(b []byte) []byte {
	if len(b) > sniffLen {
		return b[:sniffLen]
	}
	return b
}
