package utils

import (
	"os"
	"strings"
)

const (
	StorageProviderGCS   = "gcs"
	StorageProviderLocal = "local"
)

// GetStorageProvider selects where uploaded documents and artifacts live.
// "gcs" requires GCS_BUCKET; anything else falls back to local disk.
func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == StorageProviderGCS {
		return StorageProviderGCS
	}
	return StorageProviderLocal
}

// LocalStorageRoot is the directory used by the local provider.
func LocalStorageRoot() string {
	root := strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if root == "" {
		return "uploads"
	}
	return root
}
