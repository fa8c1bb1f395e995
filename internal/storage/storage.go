package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
)

// Storage provides object storage operations for subtitle sources and
// analysis exports
type Storage struct {
	client       *minio.Client
	bucketName   string
	exportPrefix string
}

// New creates a new storage client
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:       client,
		bucketName:   cfg.BucketName,
		exportPrefix: cfg.ExportPrefix,
	}, nil
}

// Bucket returns the configured bucket name
func (s *Storage) Bucket() string {
	return s.bucketName
}

// Upload uploads an object to storage
func (s *Storage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	return nil
}

// Download opens an object for reading
func (s *Storage) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}

	return object, nil
}

// ReadObject downloads a whole object into memory
func (s *Storage) ReadObject(ctx context.Context, objectName string) ([]byte, error) {
	object, err := s.Download(ctx, objectName)
	if err != nil {
		return nil, err
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", objectName, err)
	}

	return data, nil
}

// UploadExport stores a JSON analysis export for the given source and
// returns the object key it was written to
func (s *Storage) UploadExport(ctx context.Context, source string, data []byte) (string, error) {
	key := ExportKey(s.exportPrefix, source)
	if err := s.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), getContentType(key)); err != nil {
		return "", err
	}
	return key, nil
}

// ListSubtitles lists .srt object keys under prefix
func (s *Storage) ListSubtitles(ctx context.Context, prefix string) ([]string, error) {
	var objects []string

	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		if IsSubtitleKey(object.Key) {
			objects = append(objects, object.Key)
		}
	}

	return objects, nil
}

// ObjectKey strips an s3://bucket/ prefix from ref. Plain keys are returned
// unchanged.
func ObjectKey(bucket, ref string) (string, error) {
	if !strings.HasPrefix(ref, "s3://") {
		return strings.TrimPrefix(ref, "/"), nil
	}

	rest := strings.TrimPrefix(ref, "s3://")
	b, key, ok := strings.Cut(rest, "/")
	if !ok || key == "" {
		return "", fmt.Errorf("object reference %q has no key", ref)
	}
	if bucket != "" && b != bucket {
		return "", fmt.Errorf("object reference %q is not in bucket %s", ref, bucket)
	}
	return key, nil
}

// ExportKey builds the object key of the JSON export for source
func ExportKey(prefix, source string) string {
	return path.Join(prefix, filepath.Base(source)+".analysis.json")
}

// IsSubtitleKey reports whether key names an SRT file
func IsSubtitleKey(key string) bool {
	return strings.EqualFold(path.Ext(key), ".srt")
}

// getContentType returns the content type based on file extension
func getContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".srt":
		return "application/x-subrip"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
