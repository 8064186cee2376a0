package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// ErrUnknownAdapter is returned for an adapter name NewAdapter does not know
var ErrUnknownAdapter = errors.New("unknown storage adapter")

// defaultS3Prefix keeps book objects apart from anything else in a shared bucket
const defaultS3Prefix = "bookshelf"

// NewAdapter opens the raw book store named by cfg.Adapter. Names are
// matched case-insensitively and an empty name selects local storage.
func NewAdapter(cfg types.StorageConfig) (Adapter, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Adapter))
	switch name {
	case "", "local":
		a, err := NewLocalAdapter(cfg.Local.BasePath)
		if err != nil {
			return nil, fmt.Errorf("open local book storage at %s: %w", cfg.Local.BasePath, err)
		}
		return a, nil
	case "s3":
		prefix := cfg.S3.Prefix
		if strings.Trim(prefix, "/") == "" {
			prefix = defaultS3Prefix
		}
		a, err := NewS3Adapter(S3Options{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Prefix:          prefix,
			UseSSL:          cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 book storage in bucket %s: %w", cfg.S3.Bucket, err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, cfg.Adapter)
	}
}
