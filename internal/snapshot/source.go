package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"modindex/internal/config"
)

// Source yields the published snapshot bytes.
type Source interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// NewSource selects a source for cfg.URL: http(s) URLs use HTTPSource,
// s3://bucket/key uses MinIOSource when an endpoint is configured and
// S3Source otherwise, and anything else is read from the local file system.
// It returns nil when no URL is configured.
func NewSource(ctx context.Context, cfg config.Snapshot) (Source, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot url: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return NewHTTPSource(raw, timeout), nil
	case "s3":
		bucket := parsed.Host
		key := strings.TrimPrefix(parsed.Path, "/")
		if bucket == "" || key == "" {
			return nil, fmt.Errorf("snapshot url %q must name a bucket and key", raw)
		}
		if cfg.Endpoint != "" {
			return NewMinIOSource(cfg, bucket, key)
		}
		return NewS3Source(ctx, cfg, bucket, key)
	case "file":
		return FileSource{Path: parsed.Path}, nil
	case "":
		path, err := config.ExpandPath(raw)
		if err != nil {
			return nil, err
		}
		return FileSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported snapshot url scheme %q", parsed.Scheme)
	}
}

// HTTPSource downloads the snapshot with a GET request.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns a source for rawURL. A zero timeout means none.
func NewHTTPSource(rawURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{URL: rawURL, Client: &http.Client{Timeout: timeout}}
}

// Fetch issues the request and returns the response body.
func (s *HTTPSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download snapshot: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download snapshot: unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

func (s *HTTPSource) String() string {
	return s.URL
}

// S3Source reads the snapshot object from AWS S3.
type S3Source struct {
	client *s3.Client
	Bucket string
	Key    string
}

// NewS3Source builds an S3 client from the default AWS credential chain.
// Static keys from cfg take precedence when both are set.
func NewS3Source(ctx context.Context, cfg config.Snapshot, bucket, key string) (*S3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3SourceFromClient(s3.NewFromConfig(awsCfg), bucket, key), nil
}

// NewS3SourceFromClient wraps an existing client.
func NewS3SourceFromClient(client *s3.Client, bucket, key string) *S3Source {
	return &S3Source{client: client, Bucket: bucket, Key: key}
}

// Fetch streams the object body.
func (s *S3Source) Fetch(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %s: %w", s, err)
	}
	return out.Body, nil
}

func (s *S3Source) String() string {
	return "s3://" + s.Bucket + "/" + s.Key
}

// MinIOSource reads the snapshot object from an S3-compatible endpoint.
type MinIOSource struct {
	client *minio.Client
	Bucket string
	Key    string
}

// NewMinIOSource connects to cfg.Endpoint with static credentials, or
// anonymously when none are configured.
func NewMinIOSource(cfg config.Snapshot, bucket, key string) (*MinIOSource, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOSource{client: client, Bucket: bucket, Key: key}, nil
}

// Fetch streams the object. The object is stat'ed first so a missing key
// fails here rather than on the first read.
func (s *MinIOSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.Bucket, s.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", s, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
			return nil, fmt.Errorf("snapshot %s not found: %w", s, os.ErrNotExist)
		}
		return nil, fmt.Errorf("stat object %s: %w", s, err)
	}
	return obj, nil
}

func (s *MinIOSource) String() string {
	return "s3://" + s.Bucket + "/" + s.Key
}

// FileSource reads a snapshot from the local file system.
type FileSource struct {
	Path string
}

// Fetch opens the file.
func (s FileSource) Fetch(context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s not found: %w", s.Path, err)
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return f, nil
}

func (s FileSource) String() string {
	return s.Path
}
