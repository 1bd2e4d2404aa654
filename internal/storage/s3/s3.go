package s3store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dev-tams/sweepkit/internal/storage/object"
)

type Store struct {
	name   string
	bucket string
	client *s3.Client
	region string
}

type Options struct {
	Name      string
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible services
	AccessKey string
	SecretKey string
}

func New(ctx context.Context, opt Options) (*Store, error) {
	if opt.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	if opt.Region == "" && opt.Endpoint == "" {
		return nil, fmt.Errorf("s3: region is required")
	}
	if opt.Region == "" {
		opt.Region = "us-east-1"
	}

	creds := credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, "")

	cfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(opt.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opt.Endpoint == "" {
			return
		}
		endpoint := strings.TrimSpace(opt.Endpoint)
		if u, err := url.Parse(endpoint); err == nil && u.Scheme == "" {
			endpoint = "https://" + endpoint
		}
		o.BaseEndpoint = aws.String(endpoint)
		// custom endpoints are usually S3-compatible services without
		// virtual-host DNS for buckets
		o.UsePathStyle = true
	})

	return &Store{
		name:   opt.Name,
		bucket: opt.Bucket,
		region: opt.Region,
		client: client,
	}, nil
}

func (s *Store) Name() string { return s.name }

func (s *Store) ListHierarchical(ctx context.Context, prefix, delimiter string) (object.Listing, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String(delimiter),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var out object.Listing
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return object.Listing{}, fmt.Errorf("s3 list %q: %w", prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			if cp.Prefix != nil {
				out.SubPrefixes = append(out.SubPrefixes, *cp.Prefix)
			}
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			info := object.Info{Key: *obj.Key}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.ModTime = *obj.LastModified
			}
			out.Objects = append(out.Objects, info)
		}
	}
	return out, nil
}

func (s *Store) GetProperties(ctx context.Context, key string) (object.Properties, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return object.Properties{}, nil
		}
		return object.Properties{}, fmt.Errorf("s3 head %q: %w", key, err)
	}

	props := object.Properties{Exists: true}
	if head.ContentLength != nil {
		props.Size = *head.ContentLength
	}
	return props, nil
}

func (s *Store) DeleteIfExists(ctx context.Context, key string) error {
	// S3 DeleteObject succeeds for absent keys
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if apiErr, ok := asAPIError(err); ok {
			return fmt.Errorf("s3 delete %q: %s: %s", key, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

// HeadObject reports missing keys as a generic 404 "NotFound" rather than
// NoSuchKey; both show up depending on the service behind the endpoint.
func isNotFound(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey":
		return true
	}
	return false
}

func asAPIError(err error) (smithy.APIError, bool) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
