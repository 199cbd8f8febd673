package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

// SupabaseStorage stores media in a public Supabase Storage bucket.
type SupabaseStorage struct {
	client *storage_go.Client
}

func NewSupabaseStorage(url, serviceKey string) (*SupabaseStorage, error) {
	client, err := supabase.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseStorage{client: client.Storage}, nil
}

// The storage client takes no context, so cancellation is only
// checked before the call.
func (s *SupabaseStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	err := ctx.Err()
	if err != nil {
		return "", err
	}

	upsert := false
	_, err = s.client.UploadFile(bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to supabase: %w", err)
	}

	url := s.client.GetPublicUrl(bucket, path).SignedURL
	if url == "" {
		return "", errors.New("supabase returned no public url")
	}
	return url, nil
}

func (s *SupabaseStorage) Delete(ctx context.Context, bucket, path string) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	_, err = s.client.RemoveFile(bucket, []string{path})
	if err != nil {
		return fmt.Errorf("failed to delete from supabase: %w", err)
	}
	return nil
}
