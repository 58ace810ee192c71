package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StoreObject writes data under objectKey using the configured provider
// and returns an access URL (GCS) or a local path.
func StoreObject(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	if strings.Contains(objectKey, "..") {
		return "", fmt.Errorf("invalid object key: %s", objectKey)
	}

	if GetStorageProvider() == StorageProviderGCS {
		if err := UploadBytesToGCS(ctx, objectKey, data, contentType); err != nil {
			return "", err
		}
		return BuildObjectAccessURL(objectKey), nil
	}

	path := filepath.Join(LocalStorageRoot(), filepath.FromSlash(objectKey))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadObject fetches the stored bytes for objectKey.
func ReadObject(ctx context.Context, objectKey string) ([]byte, error) {
	if GetStorageProvider() == StorageProviderGCS {
		return ReadObjectFromGCS(ctx, objectKey)
	}
	return os.ReadFile(filepath.Join(LocalStorageRoot(), filepath.FromSlash(objectKey)))
}

// DeleteObject removes objectKey; missing objects are not an error.
func DeleteObject(ctx context.Context, objectKey string) error {
	if GetStorageProvider() == StorageProviderGCS {
		return DeleteObjectFromGCS(ctx, objectKey)
	}
	err := os.Remove(filepath.Join(LocalStorageRoot(), filepath.FromSlash(objectKey)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
