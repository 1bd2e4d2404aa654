package storage

import (
	"context"
	"fmt"

	"github.com/dev-tams/sweepkit/internal/config"
	miniostore "github.com/dev-tams/sweepkit/internal/storage/minio"
	s3store "github.com/dev-tams/sweepkit/internal/storage/s3"
)

// FromConfig builds all configured storage backends.
func FromConfig(ctx context.Context, cfg *config.Config) (map[string]Store, error) {
	return FromConfigByNames(ctx, cfg, nil)
}

// FromConfigByNames builds only storage backends whose names are present in include.
// If include is nil, all configured backends are built.
func FromConfigByNames(ctx context.Context, cfg *config.Config, include map[string]struct{}) (map[string]Store, error) {
	out := make(map[string]Store, len(cfg.Storage))

	for _, st := range cfg.Storage {
		if include != nil {
			if _, ok := include[st.Name]; !ok {
				continue
			}
		}

		switch st.Type {
		case "s3":
			if st.S3 == nil {
				return nil, fmt.Errorf("storage %s: s3 config missing", st.Name)
			}
			if st.S3.AccessKey == "" || st.S3.SecretKey == "" {
				return nil, fmt.Errorf("storage %s: s3.access_key and s3.secret_key are required (or env expansion failed)", st.Name)
			}
			s, err := s3store.New(ctx, s3store.Options{
				Name:      st.Name,
				Bucket:    st.S3.Bucket,
				Region:    st.S3.Region,
				Endpoint:  st.S3.Endpoint,
				AccessKey: st.S3.AccessKey,
				SecretKey: st.S3.SecretKey,
			})
			if err != nil {
				return nil, fmt.Errorf("storage %s: %w", st.Name, err)
			}
			out[st.Name] = s

		case "minio":
			if st.Minio == nil {
				return nil, fmt.Errorf("storage %s: minio config missing", st.Name)
			}
			if st.Minio.AccessKey == "" || st.Minio.SecretKey == "" {
				return nil, fmt.Errorf("storage %s: minio.access_key and minio.secret_key are required (or env expansion failed)", st.Name)
			}
			s, err := miniostore.New(miniostore.Options{
				Name:      st.Name,
				Endpoint:  st.Minio.Endpoint,
				Bucket:    st.Minio.Bucket,
				AccessKey: st.Minio.AccessKey,
				SecretKey: st.Minio.SecretKey,
				UseSSL:    st.Minio.UseSSL,
			})
			if err != nil {
				return nil, fmt.Errorf("storage %s: %w", st.Name, err)
			}
			out[st.Name] = s

		default:
			return nil, fmt.Errorf("storage %s: unknown type %q", st.Name, st.Type)
		}
	}

	return out, nil
}
