// Package storage persists uploaded product images. Three disks exist:
//   - "local"      files under a directory served at /images/*
//   - "s3"         S3-compatible object storage (AWS S3, MinIO, R2)
//   - "cloudinary" the Cloudinary upload API
package storage

import (
	"context"
	"errors"
)

// ErrListUnsupported is returned by disks that cannot enumerate objects.
var ErrListUnsupported = errors.New("storage: listing not supported")

// Object is a stored file and the URL clients fetch it from. Local URLs are
// host-relative ("/images/x.png") and resolved against the public base by
// the caller.
type Object struct {
	Name string `json:"filename"`
	URL  string `json:"url"`
}

type Disk interface {
	Name() string
	Put(ctx context.Context, name string, data []byte, contentType string) (Object, error)
	List(ctx context.Context) ([]Object, error)
}
