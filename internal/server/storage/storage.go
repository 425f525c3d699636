// Package storage keeps credential file payloads in object storage.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BlobStore stores opaque payloads by key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

var now = time.Now

// NewKey returns a fresh object key for a file owned by userID.
func NewKey(userID string) string {
	d := now().UTC()
	return fmt.Sprintf("credentials/%s/%d/%02d/%02d/%v", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}
