package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// CosStorage stores blobs in a Tencent COS bucket.
type CosStorage struct {
	client *cos.Client
}

// CosConfig configures the COS backend.
type CosConfig struct {
	BucketURL string
	SecretID  string
	SecretKey string
}

// NewCosStorage creates a COS-backed storage.
func NewCosStorage(config CosConfig) (*CosStorage, error) {
	u, err := url.Parse(config.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  config.SecretID,
			SecretKey: config.SecretKey,
		},
	})
	return &CosStorage{client: client}, nil
}

// Get returns the object, or nil when it does not exist.
func (s *CosStorage) Get(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.client.Object.Get(ctx, path, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Put stores the object, overwriting existing content.
func (s *CosStorage) Put(ctx context.Context, path string, data []byte) error {
	_, err := s.client.Object.Put(ctx, path, bytes.NewReader(data), nil)
	return err
}

// Remove deletes the object; missing objects are not an error.
func (s *CosStorage) Remove(ctx context.Context, path string) error {
	_, err := s.client.Object.Delete(ctx, path)
	if err != nil && cos.IsNotFoundError(err) {
		return nil
	}
	return err
}
