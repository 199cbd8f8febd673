package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes files under a root directory. The app serves the
// root at baseURL.
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	err := os.MkdirAll(root, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	err := ctx.Err()
	if err != nil {
		return "", err
	}

	rel, err := cleanPath(bucket, path)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	err = os.MkdirAll(filepath.Dir(full), 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	err = os.WriteFile(full, data, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return s.baseURL + "/" + rel, nil
}

func (s *LocalStorage) Delete(ctx context.Context, bucket, path string) error {
	rel, err := cleanPath(bucket, path)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func cleanPath(bucket, path string) (string, error) {
	if path == "" {
		return "", ErrInvalidPath
	}
	for _, part := range strings.Split(bucket+"/"+path, "/") {
		if part == ".." {
			return "", ErrInvalidPath
		}
	}
	rel := strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+bucket+"/"+path)), "/")
	return rel, nil
}
