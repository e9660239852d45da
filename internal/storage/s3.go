// Package storage keeps project images in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/baharkarakas/crowdfund-backend/internal/models"
)

const imagePrefix = "project-images"

type Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// s3API is the part of *s3.Client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3ImageStore struct {
	client  s3API
	bucket  string
	baseURL string
}

var loadAWSConfig = config.LoadDefaultConfig

func NewS3ImageStore(ctx context.Context, c Config) (*S3ImageStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	awsCfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3ImageStore(client, c), nil
}

func newS3ImageStore(client s3API, c Config) *S3ImageStore {
	base := strings.TrimRight(c.PublicBaseURL, "/")
	if base == "" {
		if c.Endpoint != "" {
			base = strings.TrimRight(c.Endpoint, "/") + "/" + c.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
		}
	}
	return &S3ImageStore{client: client, bucket: c.Bucket, baseURL: base}
}

// ImageKey names a project's image object: project-images/<slug>-<ownerID><ext>.
func ImageKey(slug, ownerID, filename string) string {
	return imagePrefix + "/" + slug + "-" + ownerID + strings.ToLower(path.Ext(filename))
}

// Upload stores body under key and returns its public URL with the key as asset id.
func (s *S3ImageStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (models.ProjectImage, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return models.ProjectImage{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return models.ProjectImage{URL: s.baseURL + "/" + key, ID: key}, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
