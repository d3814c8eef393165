package wods

import (
	"bytes"
	"context"
	"fmt"

	storage_go "github.com/supabase-community/storage-go"
)

// ImageUploader stores a workout image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, key string, data []byte, mimeType string) (string, error)
}

// SupabaseUploader uploads to a Supabase Storage bucket.
type SupabaseUploader struct {
	client *storage_go.Client
	bucket string
}

// NewSupabaseUploader builds an uploader against the project's storage
// endpoint (https://<project>.supabase.co/storage/v1).
func NewSupabaseUploader(projectURL, serviceKey, bucket string) *SupabaseUploader {
	client := storage_go.NewClient(projectURL+"/storage/v1", serviceKey, nil)
	return &SupabaseUploader{client: client, bucket: bucket}
}

func (u *SupabaseUploader) Upload(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	_, err := u.client.UploadFile(u.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	resp := u.client.GetPublicUrl(u.bucket, key)
	return resp.SignedURL, nil
}
