package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// Store persists uploaded media under object keys.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL returns the public address of key.
	URL(key string) string
}

// NewStore returns the backend selected by cfg.
func NewStore(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Backend {
	case BackendS3:
		return NewS3Store(ctx, cfg)
	case BackendLocal, "":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}

// ObjectKey generates a key like covers/2026/10/<uuid>.jpg.
func ObjectKey(prefix, ext string, now time.Time) string {
	return path.Join(prefix, fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), uuid.NewString()+ext)
}
