// Package storage implements the blob storage collaborator over MinIO,
// Tencent COS and the local filesystem.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/semweave/semweave/internal/logger"
)

// MinioStorage stores blobs in a MinIO (or any S3-compatible) bucket.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// MinioConfig configures the MinIO backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioStorage connects to MinIO and ensures the bucket exists.
func NewMinioStorage(ctx context.Context, config MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		logger.Infof(ctx, "created bucket %s", config.Bucket)
	}
	return &MinioStorage{client: client, bucket: config.Bucket}, nil
}

// Get returns the object, or nil when it does not exist.
func (s *MinioStorage) Get(ctx context.Context, path string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()
	data, err := io.ReadAll(object)
	if err != nil {
		var minioErr minio.ErrorResponse
		if errors.As(err, &minioErr) && minioErr.Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Put stores the object, overwriting existing content.
func (s *MinioStorage) Put(ctx context.Context, path string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, path,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// Remove deletes the object; missing objects are not an error.
func (s *MinioStorage) Remove(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
}
