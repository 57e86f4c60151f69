package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"eventhub/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for an S3 compatible object store.
type S3Config struct {
	Region             string
	Endpoint           string
	AccessKeyID        string
	SecretAccessKey    string
	PublicBaseURL      string
	InsecureSkipVerify bool
	// Buckets maps logical bucket names to physical ones. Unmapped names are
	// used as is.
	Buckets map[string]string
}

// s3API is the subset of the S3 client used by the store.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Store struct {
	client     s3API
	publicBase string
	buckets    map[string]string
	logger     *slog.Logger
}

// NewS3Store returns an ObjectStorage backed by S3. Object URLs have the form
// <PublicBaseURL>/storage/v1/object/public/<bucket>/<path>.
func NewS3Store(cfg S3Config, logger *slog.Logger) (domain.ObjectStorage, error) {
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("storage public base url is required")
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("TLS certificate verification is disabled for object storage, use only in development")
	}
	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: cfg.InsecureSkipVerify,
					MinVersion:         tls.VersionTLS12,
				},
			},
		},
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg.PublicBaseURL, cfg.Buckets, logger), nil
}

func newS3Store(client s3API, publicBase string, buckets map[string]string, logger *slog.Logger) *s3Store {
	return &s3Store{
		client:     client,
		publicBase: strings.TrimRight(publicBase, "/"),
		buckets:    buckets,
		logger:     logger,
	}
}

func (s *s3Store) physical(bucket string) string {
	if b, ok := s.buckets[bucket]; ok && b != "" {
		return b
	}
	return bucket
}

// PublicURL returns the public URL of bucket/path.
func (s *s3Store) PublicURL(bucket, path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.publicBase + "/storage/v1/object/public/" + bucket + "/" + strings.Join(segs, "/")
}

func (s *s3Store) Upload(ctx context.Context, bucket, path, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.physical(bucket)),
		Key:          aws.String(path),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	if err != nil {
		return "", &domain.RemoteError{Op: "storage.upload", Kind: domain.KindRemoteWrite, Err: err}
	}
	s.logger.DebugContext(ctx, "object uploaded", "bucket", bucket, "path", path)
	return s.PublicURL(bucket, path), nil
}

func (s *s3Store) Delete(ctx context.Context, bucket, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.physical(bucket)),
		Key:    aws.String(path),
	})
	if err != nil {
		return &domain.RemoteError{Op: "storage.delete", Kind: domain.KindRemoteWrite, Err: err}
	}
	return nil
}
