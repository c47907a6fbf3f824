package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

// S3API is the part of the S3 client the store uses
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config locates the bucket
type S3Config struct {
	Region   string
	Bucket   string
	Prefix   string
	Endpoint string // set for localstack and other S3-compatible services
}

// NewS3Client builds an S3 client from the default AWS credential chain
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3DocumentStore keeps documents as objects under a key prefix
type S3DocumentStore struct {
	client S3API
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3DocumentStore creates a new S3DocumentStore
func NewS3DocumentStore(client S3API, bucket, prefix string, logger *zap.Logger) *S3DocumentStore {
	return &S3DocumentStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

func (s *S3DocumentStore) key(documentID string) string {
	if s.prefix == "" {
		return documentID
	}
	return s.prefix + "/" + documentID
}

// Fetch downloads the object stored under documentID
func (s *S3DocumentStore) Fetch(ctx context.Context, documentID string) (*port.Document, error) {
	key := s.key(documentID)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: document %s", claim.ErrNotFound, documentID)
		}
		s.logger.Error("Failed to get object",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}

	ct := aws.ToString(out.ContentType)
	if ct == "" {
		ct = contentType(key)
	}
	name := path.Base(key)
	if n, ok := out.Metadata["name"]; ok && n != "" {
		name = n
	}
	return &port.Document{
		ID:          documentID,
		Name:        name,
		ContentType: ct,
		Content:     content,
	}, nil
}

// Put uploads doc under doc.ID
func (s *S3DocumentStore) Put(ctx context.Context, doc *port.Document) error {
	key := s.key(doc.ID)
	ct := doc.ContentType
	if ct == "" {
		ct = contentType(doc.ID)
	}

	input := &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(doc.Content),
		ContentType:          aws.String(ct),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	}
	if doc.Name != "" {
		input.Metadata = map[string]string{"name": doc.Name}
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("Failed to put object",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("put object %s: %w", key, err)
	}

	s.logger.Debug("Document uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("size", len(doc.Content)))
	return nil
}

var (
	_ port.DocumentStore  = (*S3DocumentStore)(nil)
	_ port.DocumentWriter = (*S3DocumentStore)(nil)
)
