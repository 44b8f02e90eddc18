package media

import (
	"errors"
	"strconv"
	"strings"

	"github.com/samduuf/elibrary/internal/pkg/env"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Config selects where covers and book files are stored.
type Config struct {
	Backend       string
	LocalDir      string
	PublicBaseURL string
	CoverMaxWidth int

	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicURL       string // Optional CDN or public bucket URL
}

// LoadConfig loads media configuration from environment variables
func LoadConfig() (*Config, error) {
	width, err := strconv.Atoi(env.GetEnv("MEDIA_COVER_MAX_WIDTH", "600"))
	if err != nil || width <= 0 {
		width = 600
	}

	config := &Config{
		Backend:         strings.ToLower(env.GetEnv("MEDIA_BACKEND", BackendLocal)),
		LocalDir:        env.GetEnv("MEDIA_DIR", "uploads"),
		PublicBaseURL:   strings.TrimRight(env.GetEnv("MEDIA_BASE_URL", "/uploads"), "/"),
		CoverMaxWidth:   width,
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicURL:       strings.TrimRight(env.GetEnv("S3_PUBLIC_URL", ""), "/"),
	}

	if config.Backend == BackendS3 {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when MEDIA_BACKEND=s3")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when MEDIA_BACKEND=s3")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when MEDIA_BACKEND=s3")
		}
	}

	return config, nil
}
