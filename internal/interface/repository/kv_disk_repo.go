package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"trip-planner-service/internal/domain/repository"

	"github.com/peterbourgon/diskv/v3"
)

// DiskKeyValueRepository implements KeyValueRepository with one file per key
type DiskKeyValueRepository struct {
	d *diskv.Diskv
}

// NewDiskKeyValueRepository creates a key-value repository rooted at basePath
func NewDiskKeyValueRepository(basePath string) repository.KeyValueRepository {
	return &DiskKeyValueRepository{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: flatTransform,
			InverseTransform:  flatInverseTransform,
			CacheSizeMax:      1024 * 1024, // 1MB
		}),
	}
}

// Get reads the value stored under key
func (r *DiskKeyValueRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, err := r.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return val, nil
}

// Set writes the value stored under key
func (r *DiskKeyValueRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.d.Write(key, value); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// keys are stored flat under the base path
func flatTransform(key string) *diskv.PathKey {
	return &diskv.PathKey{
		Path:     []string{},
		FileName: key,
	}
}

func flatInverseTransform(pathKey *diskv.PathKey) string {
	return pathKey.FileName
}
