// Package storage archives placed orders to an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
	StorageClass    string
}

// Object is one archive file. Metadata becomes x-amz-meta-* headers.
type Object struct {
	Key         string
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

type ObjectStore struct {
	bucket       string
	publicBase   string
	storageClass types.StorageClass
	client       *s3.Client
}

func NewObjectStore(ctx context.Context, cfg Config) (*ObjectStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(cfg.AccessKeyID),
			strings.TrimSpace(cfg.SecretAccessKey),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		// R2 and MinIO want path-style addressing.
		o.UsePathStyle = true
	})

	store := &ObjectStore{
		bucket:     bucket,
		publicBase: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		client:     client,
	}
	if sc := parseStorageClass(cfg.StorageClass); sc != nil {
		store.storageClass = *sc
	}
	return store, nil
}

// Put uploads a private, uncached object and returns where it can be found:
// a URL under the public base when one is configured, otherwise the key.
func (s *ObjectStore) Put(ctx context.Context, obj Object) (string, error) {
	key := strings.TrimLeft(obj.Key, "/")
	contentType := strings.TrimSpace(obj.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	input := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(obj.Body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("private, no-store"),
		Metadata:     obj.Metadata,
		StorageClass: s.storageClass,
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}

	if s.publicBase == "" {
		return key, nil
	}
	return s.publicBase + "/" + key, nil
}

func parseStorageClass(v string) *types.StorageClass {
	v = strings.TrimSpace(strings.ToUpper(v))
	if v == "" {
		return nil
	}
	sc := types.StorageClass(v)
	return &sc
}
