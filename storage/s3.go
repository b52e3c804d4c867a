package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3 implements ArtifactStore against an S3 bucket, using the SDK's default
// credential chain.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 creates an S3-backed artifact store.
func NewS3(bucket, region string) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket name required")
	}
	if region == "" {
		return nil, fmt.Errorf("S3 region required")
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &S3{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

// Put uploads the artifact.
func (s *S3) Put(ctx context.Context, key string, reader io.Reader) error {
	objectKey, err := objectKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
		Body:   reader,
	})
	if err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}
	return nil
}

// Get downloads the artifact.
func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := objectKey(key)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download artifact: %w", err)
	}
	return result.Body, nil
}

// Delete removes the artifact.
func (s *S3) Delete(ctx context.Context, key string) error {
	objectKey, err := objectKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// Exists reports whether the artifact is present.
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	objectKey, err := objectKey(key)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head artifact: %w", err)
	}
	return true, nil
}

// objectKey validates the key and normalizes it to slash form.
func objectKey(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

// validateKey rejects empty, absolute, and traversing keys. Enforced for
// both backends so S3 keys stay consistent with local paths.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key required", ErrInvalidKey)
	}
	clean := filepath.Clean(key)
	if len(clean) > 0 && clean[0] == '.' {
		return fmt.Errorf("%w: traversal detected", ErrInvalidKey)
	}
	if filepath.IsAbs(clean) {
		return fmt.Errorf("%w: absolute keys not allowed", ErrInvalidKey)
	}
	return nil
}

// isNotFound reports whether err is an S3 missing-object error.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
