package storage

import (
	"context"
	"io"
)

// Target says what an uploaded image belongs to. It is also the key prefix.
type Target string

const (
	TargetNovelCover Target = "covers"
	TargetPostImage  Target = "posts"
)

// ImageUploader stores user supplied images
type ImageUploader interface {
	UploadImage(ctx context.Context, target Target, ownerID, filename string, body io.Reader, size int64) (*UploadResult, error)
}

// FileDeleter removes stored objects by key
type FileDeleter interface {
	DeleteFile(ctx context.Context, key string) error
}

// FileStore is the storage surface used by the handlers and the deletion
// workflow
type FileStore interface {
	ImageUploader
	FileDeleter
}

// Ensure S3Uploader implements FileStore
var _ FileStore = (*S3Uploader)(nil)
