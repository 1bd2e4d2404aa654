package miniostore

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dev-tams/sweepkit/internal/storage/object"
)

type Store struct {
	name   string
	bucket string
	client *minio.Client
}

type Options struct {
	Name      string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func New(opt Options) (*Store, error) {
	if opt.Endpoint == "" || opt.Bucket == "" {
		return nil, fmt.Errorf("minio: endpoint and bucket are required")
	}

	client, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &Store{
		name:   opt.Name,
		bucket: opt.Bucket,
		client: client,
	}, nil
}

func (s *Store) Name() string { return s.name }

func (s *Store) ListHierarchical(ctx context.Context, prefix, delimiter string) (object.Listing, error) {
	// non-recursive listing groups keys one level deep; minio-go reports the
	// grouped child prefixes as entries whose key ends with the delimiter
	var out object.Listing
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return object.Listing{}, fmt.Errorf("minio list %q: %w", prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, delimiter) && obj.Key != prefix {
			out.SubPrefixes = append(out.SubPrefixes, obj.Key)
			continue
		}
		out.Objects = append(out.Objects, object.Info{
			Key:     obj.Key,
			Size:    obj.Size,
			ModTime: obj.LastModified,
		})
	}
	return out, nil
}

func (s *Store) GetProperties(ctx context.Context, key string) (object.Properties, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return object.Properties{}, nil
		}
		return object.Properties{}, fmt.Errorf("minio stat %q: %w", key, err)
	}
	return object.Properties{Exists: true, Size: info.Size}, nil
}

func (s *Store) DeleteIfExists(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("minio delete %q: %w", key, err)
	}
	return nil
}
