// Package storage keeps book content in object storage and hands out
// short-lived read links for it.
package storage

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// ContentStore uploads book content and links to it.
type ContentStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// ContentURL returns a presigned GET URL for key.
	ContentURL(ctx context.Context, key string) (string, error)
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Key maps a book id to its object key under the configured prefix.
	Key(bookID string) string
}
