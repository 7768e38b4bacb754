// Package archive uploads exported review payloads to S3-compatible
// object storage as timestamped objects. The archive is optional and
// disabled when no endpoint is configured.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Object struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Archived time.Time `json:"archived"`
}

type Service struct {
	client *minio.Client
	bucket string
}

func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return &Service{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the archive bucket when it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Upload stores a payload under <docID>/<timestamp>.json and returns
// the object key.
func (s *Service) Upload(ctx context.Context, docID string, payload []byte) (string, error) {
	key := fmt.Sprintf("%s/%s.json", docID, time.Now().UTC().Format("20060102T150405Z"))
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("upload archive object: %w", err)
	}
	return key, nil
}

// List returns archived objects for a document, most recent last as
// reported by the listing.
func (s *Service) List(ctx context.Context, docID string, limit int) ([]Object, error) {
	objects := make([]Object, 0, limit)
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    docID + "/",
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list archive objects: %w", info.Err)
		}
		objects = append(objects, Object{
			Key:      info.Key,
			Size:     info.Size,
			Archived: info.LastModified,
		})
		if limit > 0 && len(objects) >= limit {
			break
		}
	}
	return objects, nil
}
