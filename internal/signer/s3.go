// Package signer issues time-limited URLs for objects in S3-compatible storage.
package signer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"reelhub-api/internal/model"
)

// MaxExpiry is the longest validity SigV4 presigned URLs support.
const MaxExpiry = 7 * 24 * time.Hour

// Config describes the bucket and credentials used for presigning.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // custom endpoint for R2/MinIO; empty for AWS
	AccessKey string
	SecretKey string
	Expiry    time.Duration
	// PublicBaseURL is the public prefix media URLs are stored under; it is
	// stripped to recover the object key.
	PublicBaseURL string
}

type presignFunc func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)

// S3Signer presigns GET requests for objects referenced by their public URL.
type S3Signer struct {
	presign presignFunc
	bucket  string
	expiry  time.Duration
	baseURL string
}

// NewS3Signer builds a signer from static credentials, or from the default AWS
// credential chain when no access key is configured.
func NewS3Signer(ctx context.Context, cfg Config) (*S3Signer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket: %w", model.ErrNotConfigured)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	pc := s3.NewPresignClient(client)

	presign := func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
		req, err := pc.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(expiry))
		if err != nil {
			return "", err
		}
		return req.URL, nil
	}
	return newS3Signer(cfg, presign), nil
}

func newS3Signer(cfg Config, presign presignFunc) *S3Signer {
	expiry := cfg.Expiry
	if expiry <= 0 || expiry > MaxExpiry {
		expiry = MaxExpiry
	}
	return &S3Signer{
		presign: presign,
		bucket:  cfg.Bucket,
		expiry:  expiry,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}
}

// Expiry returns the validity window of issued URLs.
func (s *S3Signer) Expiry() time.Duration { return s.expiry }

// SignURL returns a presigned GET URL for sourceURL. Failures are ErrSigning.
func (s *S3Signer) SignURL(ctx context.Context, sourceURL string) (string, error) {
	key, err := s.objectKey(sourceURL)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", sourceURL, err, model.ErrSigning)
	}
	signed, err := s.presign(ctx, s.bucket, key, s.expiry)
	if err != nil {
		return "", fmt.Errorf("presign %s: %v: %w", key, err, model.ErrSigning)
	}
	return signed, nil
}

// objectKey extracts the object key from a public URL, an s3:// URL or a bare key.
func (s *S3Signer) objectKey(sourceURL string) (string, error) {
	if s.baseURL != "" && strings.HasPrefix(sourceURL, s.baseURL+"/") {
		return strings.TrimPrefix(sourceURL, s.baseURL+"/"), nil
	}

	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "":
		key := strings.TrimPrefix(u.Path, "/")
		if key == "" {
			return "", fmt.Errorf("empty object key")
		}
		return key, nil
	case "s3":
		if u.Host != s.bucket {
			return "", fmt.Errorf("bucket %q is not %q", u.Host, s.bucket)
		}
		return strings.TrimPrefix(u.Path, "/"), nil
	case "http", "https":
		key := strings.TrimPrefix(u.Path, "/")
		// path-style URLs carry the bucket as the first segment
		key = strings.TrimPrefix(key, s.bucket+"/")
		if key == "" {
			return "", fmt.Errorf("empty object key")
		}
		return key, nil
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

// Unavailable is a signer used when object storage is not configured. Every
// call fails with model.ErrNotConfigured, so batch signing returns originals.
type Unavailable struct {
	Reason string
}

// SignURL implements cache.Signer.
func (u Unavailable) SignURL(context.Context, string) (string, error) {
	return "", fmt.Errorf("url signing unavailable: %s: %w", u.Reason, model.ErrNotConfigured)
}
