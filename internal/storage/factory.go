package storage

import (
	"fmt"

	"github.com/gargarushee/VisualMemorySearch/internal/config"
)

// NewStorage creates the configured ObjectStorage backend.
func NewStorage(cfg *config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Storage(&S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
		})
	case "local", "":
		return NewLocalStorage(&LocalConfig{
			Dir:     cfg.LocalDir,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
