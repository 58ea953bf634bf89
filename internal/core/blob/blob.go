package blob

import (
	"context"
	"fmt"

	cfg "github.com/bacmr/maktaba/internal/config"
	"github.com/bacmr/maktaba/internal/core"
)

// New selects the blob store implementation from STORAGE_TYPE.
func New(ctx context.Context, cfg *cfg.Config) (core.BlobStore, error) {
	switch cfg.StorageType {
	case "local":
		return NewLocalStore(cfg.StoragePath)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown STORAGE_TYPE %q (want local or s3)", cfg.StorageType)
	}
}
